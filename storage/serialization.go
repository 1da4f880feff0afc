// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"github.com/poiesic/corpus/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalSubscription serializes a Subscription to bytes.
func MarshalSubscription(sub *core.Subscription) []byte {
	buf := make([]byte, core.SubscriptionMUS.Size(*sub))
	core.SubscriptionMUS.Marshal(*sub, buf)
	return buf
}

// UnmarshalSubscription deserializes a Subscription from bytes.
func UnmarshalSubscription(data []byte) (*core.Subscription, error) {
	sub, _, err := core.SubscriptionMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarshalProcessedItem serializes a ProcessedItem to bytes.
func MarshalProcessedItem(item *core.ProcessedItem) []byte {
	buf := make([]byte, core.ProcessedItemMUS.Size(*item))
	core.ProcessedItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalProcessedItem deserializes a ProcessedItem from bytes.
func UnmarshalProcessedItem(data []byte) (*core.ProcessedItem, error) {
	item, _, err := core.ProcessedItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarshalPendingItem serializes a PendingItem to bytes.
func MarshalPendingItem(item *core.PendingItem) []byte {
	buf := make([]byte, core.PendingItemMUS.Size(*item))
	core.PendingItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalPendingItem deserializes a PendingItem from bytes.
func UnmarshalPendingItem(data []byte) (*core.PendingItem, error) {
	item, _, err := core.PendingItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}
