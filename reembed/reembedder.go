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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// ProcessorType identifies this batch processor in saved checkpoints.
const ProcessorType = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues from the last saved checkpoint instead of
	// starting over
	Resume bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder orchestrates the reembedding of all stored chunks.
type Reembedder struct {
	chunks      storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ChunkIterator
}

// NewReembedder creates a new reembedder.
// checkpoints may be nil, which disables checkpoint saving and resume.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(chunks storage.ChunkRepository, checkpoints storage.CheckpointRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		chunks:      chunks,
		checkpoints: checkpoints,
		embedder:    embedder,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(chunks, embedder, config.MaxRetries, config.RetryDelay),
		iterator:    NewChunkIterator(chunks, config.BatchSize),
	}
}

// Run executes the reembedding operation. Every stored chunk is reembedded
// with the configured embedder, batch by batch in IndexedAt order, and
// progress is reported to the configured writer.
//
// When Resume is set and a checkpoint exists, the scan restarts from the
// checkpoint's last IndexedAt. Chunks sharing that exact timestamp are
// embedded again, which is harmless since the operation is idempotent.
func (r *Reembedder) Run(ctx context.Context) error {
	since := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	alreadyDone := 0

	if r.config.Resume && r.checkpoints != nil {
		checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, ProcessorType)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if checkpoint != nil {
			since = checkpoint.LastIndexedAt
			alreadyDone = checkpoint.Processed
			fmt.Fprintf(r.progress, "Resuming from checkpoint (%d chunks done, last indexed %s)\n",
				alreadyDone, checkpoint.LastIndexedAt.Format(time.RFC3339))
		}
	}

	remaining, err := r.chunks.GetChunksByDateRange(ctx, since, farFuture)
	if err != nil {
		return fmt.Errorf("failed to query chunks: %w", err)
	}

	total := len(remaining)
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0

	err = r.iterator.ForEach(ctx, since, func(batch []*core.Chunk) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(batch)
		tracker.Update(processed)

		if r.checkpoints != nil {
			checkpoint := &core.Checkpoint{
				ProcessorType: ProcessorType,
				LastIndexedAt: batch[len(batch)-1].IndexedAt,
				Processed:     alreadyDone + processed,
			}
			if err := r.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
				return fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
