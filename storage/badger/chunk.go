package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close releases repository resources. Chunk IDs are content-derived, so
// there is no sequence to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChunks persists one or more chunks atomically.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.IndexedAt.IsZero() {
				chunk.IndexedAt = now
			}
			if err := r.writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ReplaceDocument removes every chunk stored under sourceURL and inserts
// the replacements within a single transaction. Readers never observe the
// intermediate deleted state.
func (r *ChunkRepository) ReplaceDocument(ctx context.Context, sourceURL string, chunks []*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := r.deleteBySourceURL(tx, sourceURL); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.IndexedAt.IsZero() {
				chunk.IndexedAt = now
			}
			if err := r.writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// UpdateChunks rewrites existing chunks in place.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)

			// Read old chunk to detect index changes
			old, err := r.readChunk(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			value := storage.MarshalChunk(chunk)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if the indexed time moved
			if !old.IndexedAt.Equal(chunk.IndexedAt) {
				if err := tx.Delete(makeChunkDateKey(old.IndexedAt, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeChunkDateKey(chunk.IndexedAt, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
					return err
				}
			}

			// Update tag index if tags changed
			if !slices.Equal(old.Tags, chunk.Tags) {
				for _, tag := range old.Tags {
					if err := tx.Delete(makeChunkTagKey(tag, old.Id)); err != nil {
						return err
					}
				}
				for _, tag := range chunk.Tags {
					if err := tx.Set(makeChunkTagKey(tag, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
						return err
					}
				}
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes every chunk belonging to the document identity.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, documentID core.ID) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.collectIndexIDs(tx, makePartialChunkDocKey(documentID))
		if err != nil {
			return err
		}
		removed, err = r.deleteChunks(tx, ids)
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteBySourceURL removes every chunk stored under the source URL.
func (r *ChunkRepository) DeleteBySourceURL(ctx context.Context, sourceURL string) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		removed, err = r.deleteBySourceURL(tx, sourceURL)
		if err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunksByDocument retrieves all chunks for a document, ordered by
// chunk index. The document index key embeds the ordinal, so iteration
// order is already ordinal order.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.collectIndexIDs(tx, makePartialChunkDocKey(documentID))
		if err != nil {
			return err
		}
		results, err = r.readChunks(tx, ids)
		return err
	}, false)
	return results, err
}

// GetChunksBySourceURL retrieves all chunks for a source URL, ordered by
// chunk index.
func (r *ChunkRepository) GetChunksBySourceURL(ctx context.Context, sourceURL string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.collectIndexIDs(tx, makePartialChunkSourceKey(sourceURL))
		if err != nil {
			return err
		}
		results, err = r.readChunks(tx, ids)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	// The source index is keyed by chunk ID, not ordinal
	slices.SortFunc(results, func(a, b *core.Chunk) int {
		return a.ChunkIndex - b.ChunkIndex
	})
	return results, nil
}

// GetChunksByTag retrieves IDs of chunks carrying the tag.
func (r *ChunkRepository) GetChunksByTag(ctx context.Context, tag string) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		ids, err = r.collectIndexIDs(tx, makePartialChunkTagKey(tag))
		return err
	}, false)
	return ids, err
}

// GetChunksByDateRange retrieves chunks with start <= IndexedAt < end,
// ordered by indexed time.
func (r *ChunkRepository) GetChunksByDateRange(ctx context.Context, start, end time.Time) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialChunkDateKey(start)
		endKey := makePartialChunkDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			// endKey carries no chunk ID suffix, so any full key at
			// exactly the end timestamp compares greater. The range is
			// end-exclusive.
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := r.readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentChunks retrieves the N most recently indexed chunks, most
// recent first.
func (r *ChunkRepository) GetRecentChunks(ctx context.Context, limit int) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible date index key
		startKey := makePartialChunkDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(chunkDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := r.readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// CountChunks returns the number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper methods

// writeChunk stores the primary record and all index entries.
func (r *ChunkRepository) writeChunk(tx *badger.Txn, chunk *core.Chunk) error {
	key := makeChunkKey(chunk.Id)
	value := storage.MarshalChunk(chunk)
	if err := tx.Set(key, value); err != nil {
		return err
	}

	idValue := storage.MarshalID(chunk.Id)
	if err := tx.Set(makeChunkDocKey(chunk.DocumentId, chunk.ChunkIndex), idValue); err != nil {
		return err
	}
	if err := tx.Set(makeChunkSourceKey(chunk.SourceURL, chunk.Id), idValue); err != nil {
		return err
	}
	if err := tx.Set(makeChunkDateKey(chunk.IndexedAt, chunk.Id), idValue); err != nil {
		return err
	}
	for _, tag := range chunk.Tags {
		if err := tx.Set(makeChunkTagKey(tag, chunk.Id), idValue); err != nil {
			return err
		}
	}
	return nil
}

// deleteChunks removes chunks and all their index entries.
// Returns the number actually removed.
func (r *ChunkRepository) deleteChunks(tx *badger.Txn, ids []core.ID) (int, error) {
	removed := 0
	for _, id := range ids {
		key := makeChunkKey(id)
		chunk, err := r.readChunk(tx, key)
		if err != nil {
			return removed, err
		}
		if chunk == nil {
			continue
		}

		if err := tx.Delete(makeChunkDocKey(chunk.DocumentId, chunk.ChunkIndex)); err != nil {
			return removed, err
		}
		if err := tx.Delete(makeChunkSourceKey(chunk.SourceURL, chunk.Id)); err != nil {
			return removed, err
		}
		if err := tx.Delete(makeChunkDateKey(chunk.IndexedAt, chunk.Id)); err != nil {
			return removed, err
		}
		for _, tag := range chunk.Tags {
			if err := tx.Delete(makeChunkTagKey(tag, chunk.Id)); err != nil {
				return removed, err
			}
		}
		if err := tx.Delete(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// deleteBySourceURL removes all chunks under a source URL within tx.
func (r *ChunkRepository) deleteBySourceURL(tx *badger.Txn, sourceURL string) (int, error) {
	ids, err := r.collectIndexIDs(tx, makePartialChunkSourceKey(sourceURL))
	if err != nil {
		return 0, err
	}
	return r.deleteChunks(tx, ids)
}

// collectIndexIDs gathers chunk IDs from an index prefix scan.
func (r *ChunkRepository) collectIndexIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	var ids []core.ID
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readChunks looks up full records for a list of IDs, skipping missing ones.
func (r *ChunkRepository) readChunks(tx *badger.Txn, ids []core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	for _, id := range ids {
		chunk, err := r.readChunk(tx, makeChunkKey(id))
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			results = append(results, chunk)
		}
	}
	return results, nil
}

// readChunk reads a chunk record from the transaction.
// Returns nil, nil if the key doesn't exist.
func (r *ChunkRepository) readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
