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


package core

import (
	"maps"
	"math"
	"slices"
	"time"

	com "github.com/mus-format/common-go"
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted record types. Written by hand in the
// same shape the mus generator emits: one serializer value per type with
// Marshal/Unmarshal/Size/Skip methods.
var (
	IDMUS            = idMUS{}
	ChunkMUS         = chunkMUS{}
	SubscriptionMUS  = subscriptionMUS{}
	ProcessedItemMUS = processedItemMUS{}
	PendingItemMUS   = pendingItemMUS{}
	CheckpointMUS    = checkpointMUS{}
)

var (
	_ mus.Serializer[ID]            = IDMUS
	_ mus.Serializer[Chunk]         = ChunkMUS
	_ mus.Serializer[Subscription]  = SubscriptionMUS
	_ mus.Serializer[ProcessedItem] = ProcessedItemMUS
	_ mus.Serializer[PendingItem]   = PendingItemMUS
	_ mus.Serializer[Checkpoint]    = CheckpointMUS
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalStringSlice(v.Tags, bs[n:])
	n += varint.Int.Marshal(v.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(v.TotalChunks, bs[n:])
	n += marshalTime(v.IndexedAt, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalStringMap(v.Metadata, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Title, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.SourceURL, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Content, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Vector, c, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Tags, c, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ChunkIndex, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.TotalChunks, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.IndexedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.CreatedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Metadata, c, err = unmarshalStringMap(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	return v, n, nil
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.SourceURL)
	size += ord.String.Size(v.Content)
	size += sizeVector(v.Vector)
	size += sizeStringSlice(v.Tags)
	size += varint.Int.Size(v.ChunkIndex)
	size += varint.Int.Size(v.TotalChunks)
	size += sizeTime(v.IndexedAt)
	size += sizeTime(v.CreatedAt)
	size += sizeStringMap(v.Metadata)
	return size
}

func (s chunkMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type subscriptionMUS struct{}

func (s subscriptionMUS) Marshal(v Subscription, bs []byte) (n int) {
	n = ord.String.Marshal(v.FeedURL, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += marshalStringSlice(v.Tags, bs[n:])
	n += ord.Bool.Marshal(v.Enabled, bs[n:])
	n += marshalTime(v.LastChecked, bs[n:])
	n += marshalTime(v.LastItemSeen, bs[n:])
	n += varint.Int.Marshal(v.FetchFailures, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (s subscriptionMUS) Unmarshal(bs []byte) (v Subscription, n int, err error) {
	var c int
	if v.FeedURL, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Name, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Description, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Tags, c, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Enabled, c, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.LastChecked, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.LastItemSeen, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.FetchFailures, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.CreatedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.UpdatedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	return v, n, nil
}

func (s subscriptionMUS) Size(v Subscription) (size int) {
	size = ord.String.Size(v.FeedURL)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += sizeStringSlice(v.Tags)
	size += ord.Bool.Size(v.Enabled)
	size += sizeTime(v.LastChecked)
	size += sizeTime(v.LastItemSeen)
	size += varint.Int.Size(v.FetchFailures)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

func (s subscriptionMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type processedItemMUS struct{}

func (s processedItemMUS) Marshal(v ProcessedItem, bs []byte) (n int) {
	n = ord.String.Marshal(v.FeedURL, bs)
	n += ord.String.Marshal(v.ItemID, bs[n:])
	n += marshalTime(v.ProcessedAt, bs[n:])
	return n
}

func (s processedItemMUS) Unmarshal(bs []byte) (v ProcessedItem, n int, err error) {
	var c int
	if v.FeedURL, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.ItemID, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ProcessedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	return v, n, nil
}

func (s processedItemMUS) Size(v ProcessedItem) int {
	return ord.String.Size(v.FeedURL) + ord.String.Size(v.ItemID) + sizeTime(v.ProcessedAt)
}

func (s processedItemMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type pendingItemMUS struct{}

func (s pendingItemMUS) Marshal(v PendingItem, bs []byte) (n int) {
	n = ord.String.Marshal(v.FeedURL, bs)
	n += ord.String.Marshal(v.ItemID, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Link, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += marshalTime(v.Published, bs[n:])
	n += marshalStringSlice(v.Categories, bs[n:])
	n += ord.String.Marshal(v.FeedName, bs[n:])
	n += marshalStringSlice(v.FeedTags, bs[n:])
	n += marshalTime(v.QueuedAt, bs[n:])
	return n
}

func (s pendingItemMUS) Unmarshal(bs []byte) (v PendingItem, n int, err error) {
	var c int
	if v.FeedURL, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.ItemID, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Title, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Link, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Description, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Content, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Author, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Published, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Categories, c, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.FeedName, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.FeedTags, c, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.QueuedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	return v, n, nil
}

func (s pendingItemMUS) Size(v PendingItem) (size int) {
	size = ord.String.Size(v.FeedURL)
	size += ord.String.Size(v.ItemID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Link)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Author)
	size += sizeTime(v.Published)
	size += sizeStringSlice(v.Categories)
	size += ord.String.Size(v.FeedName)
	size += sizeStringSlice(v.FeedTags)
	size += sizeTime(v.QueuedAt)
	return size
}

func (s pendingItemMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.ProcessorType, bs)
	n += marshalTime(v.LastIndexedAt, bs[n:])
	n += varint.Int.Marshal(v.Processed, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	var c int
	if v.ProcessorType, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.LastIndexedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Processed, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.UpdatedAt, c, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	return v, n, nil
}

func (s checkpointMUS) Size(v Checkpoint) int {
	return ord.String.Size(v.ProcessorType) + sizeTime(v.LastIndexedAt) +
		varint.Int.Size(v.Processed) + sizeTime(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// zeroTimeMark encodes time.Time{} so it round-trips to a true zero value.
const zeroTimeMark = math.MinInt64

func marshalTime(t time.Time, bs []byte) int {
	v := int64(zeroTimeMark)
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Marshal(v, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == zeroTimeMark {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	v := int64(zeroTimeMark)
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Size(v)
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, com.ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]string, length)
	var c int
	for i := 0; i < length; i++ {
		if v[i], c, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + c, err
		}
		n += c
	}
	return v, n, nil
}

func sizeStringSlice(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// marshalStringMap writes entries in sorted key order so encoding is
// deterministic.
func marshalStringMap(m map[string]string, bs []byte) (n int) {
	keys := slices.Sorted(maps.Keys(m))
	n = varint.Int.Marshal(len(keys), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, com.ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	var c int
	var k, v string
	for i := 0; i < length; i++ {
		if k, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + c, err
		}
		n += c
		if v, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + c, err
		}
		n += c
		m[k] = v
	}
	return m, n, nil
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, com.ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var c int
	for i := 0; i < length; i++ {
		if v[i], c, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + c, err
		}
		n += c
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	return varint.Int.Size(len(v)) + len(v)*4
}
