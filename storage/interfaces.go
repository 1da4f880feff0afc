package storage

import (
	"context"
	"time"

	"github.com/poiesic/corpus/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for managing persisted document chunks.
type ChunkRepository interface {
	Repository

	// AddChunks persists one or more chunks in a single transaction.
	// Sets IndexedAt if not already set. The batch is atomic: if any
	// write fails, no chunk is stored.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// ReplaceDocument deletes every chunk sharing the source URL and then
	// inserts the given chunks, all within one transaction. This is the
	// delete-then-insert update sequence for a single source URL.
	ReplaceDocument(ctx context.Context, sourceURL string, chunks []*core.Chunk) error

	// UpdateChunks rewrites existing chunks in place (used when vectors
	// are regenerated). Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error

	// DeleteDocument removes every chunk sharing the document identity.
	// Returns the number of chunks removed.
	DeleteDocument(ctx context.Context, documentID core.ID) (int, error)

	// DeleteBySourceURL removes every chunk sharing the source URL.
	// Returns the number of chunks removed.
	DeleteBySourceURL(ctx context.Context, sourceURL string) (int, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks for a document identity,
	// ordered by chunk index.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetChunksBySourceURL retrieves all chunks for a source URL,
	// ordered by chunk index.
	GetChunksBySourceURL(ctx context.Context, sourceURL string) ([]*core.Chunk, error)

	// GetChunksByTag retrieves IDs of chunks carrying the tag.
	GetChunksByTag(ctx context.Context, tag string) ([]core.ID, error)

	// GetChunksByDateRange retrieves chunks indexed within a time range,
	// where start <= IndexedAt < end, ordered by IndexedAt.
	GetChunksByDateRange(ctx context.Context, start, end time.Time) ([]*core.Chunk, error)

	// GetRecentChunks retrieves the N most recently indexed chunks,
	// most recent first.
	GetRecentChunks(ctx context.Context, limit int) ([]*core.Chunk, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit
	// results, ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// FeedRepository provides operations for feed subscriptions and the
// per-item processed/pending lifecycle state.
type FeedRepository interface {
	Repository

	// AddSubscription stores a new subscription keyed by feed URL.
	// Returns ErrDuplicateKey if the feed URL is already subscribed.
	AddSubscription(ctx context.Context, sub *core.Subscription) error

	// UpdateSubscription rewrites an existing subscription.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the feed URL is not subscribed.
	UpdateSubscription(ctx context.Context, sub *core.Subscription) error

	// GetSubscription retrieves a subscription by feed URL.
	// Returns ErrNotFound if the feed URL is not subscribed.
	GetSubscription(ctx context.Context, feedURL string) (*core.Subscription, error)

	// ListSubscriptions retrieves all subscriptions.
	ListSubscriptions(ctx context.Context) ([]*core.Subscription, error)

	// DeleteSubscription removes a subscription by feed URL.
	// Returns ErrNotFound if the feed URL is not subscribed.
	DeleteSubscription(ctx context.Context, feedURL string) error

	// MarkItemProcessed writes the durable dedup marker for a feed item.
	// Idempotent: marking an already-processed item is a no-op.
	MarkItemProcessed(ctx context.Context, item *core.ProcessedItem) error

	// IsItemProcessed reports whether a dedup marker exists for the item.
	IsItemProcessed(ctx context.Context, feedURL, itemID string) (bool, error)

	// CountProcessedItems returns the number of dedup markers stored.
	CountProcessedItems(ctx context.Context) (int, error)

	// DeleteProcessedBefore removes dedup markers processed before the
	// cutoff. Returns the number removed.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)

	// AddPendingItem queues an item for approval. Idempotent: an existing
	// pending item for the same (feed URL, item id) is left untouched.
	AddPendingItem(ctx context.Context, item *core.PendingItem) error

	// GetPendingItem retrieves a pending item by item id.
	// Returns ErrNotFound if no such item is queued.
	GetPendingItem(ctx context.Context, itemID string) (*core.PendingItem, error)

	// ListPendingItems retrieves all queued items, oldest first.
	ListPendingItems(ctx context.Context) ([]*core.PendingItem, error)

	// DeletePendingItem removes a pending item by item id.
	// Returns ErrNotFound if no such item is queued.
	DeletePendingItem(ctx context.Context, itemID string) error
}

// CheckpointRepository persists batch-processor progress markers.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor type.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)
}
