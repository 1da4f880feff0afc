package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// FeedRepository implements storage.FeedRepository for BadgerDB.
type FeedRepository struct {
	backend *Backend
}

var _ storage.FeedRepository = (*FeedRepository)(nil)

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(backend *Backend) *FeedRepository {
	return &FeedRepository{backend: backend}
}

// Close releases repository resources.
func (r *FeedRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *FeedRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSubscription stores a new subscription keyed by feed URL.
func (r *FeedRepository) AddSubscription(ctx context.Context, sub *core.Subscription) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSubscriptionKey(sub.FeedURL)

		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		now := time.Now().UTC()
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = now
		}
		sub.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalSubscription(sub)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateSubscription rewrites an existing subscription.
func (r *FeedRepository) UpdateSubscription(ctx context.Context, sub *core.Subscription) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSubscriptionKey(sub.FeedURL)

		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		sub.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalSubscription(sub)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSubscription retrieves a subscription by feed URL.
func (r *FeedRepository) GetSubscription(ctx context.Context, feedURL string) (*core.Subscription, error) {
	var result *core.Subscription
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSubscriptionKey(feedURL))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalSubscription(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListSubscriptions retrieves all subscriptions, ordered by feed URL.
func (r *FeedRepository) ListSubscriptions(ctx context.Context) ([]*core.Subscription, error) {
	var results []*core.Subscription
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(subscriptionPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var sub *core.Subscription
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				sub, unmarshalErr = storage.UnmarshalSubscription(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, sub)
		}
		return nil
	}, false)
	return results, err
}

// DeleteSubscription removes a subscription by feed URL.
func (r *FeedRepository) DeleteSubscription(ctx context.Context, feedURL string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSubscriptionKey(feedURL)

		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// MarkItemProcessed writes the durable dedup marker for a feed item.
// Re-marking an already processed item keeps the original timestamp.
func (r *FeedRepository) MarkItemProcessed(ctx context.Context, item *core.ProcessedItem) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProcessedKey(item.ItemID)

		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		if item.ProcessedAt.IsZero() {
			item.ProcessedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalProcessedItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// IsItemProcessed reports whether a dedup marker exists for the item.
func (r *FeedRepository) IsItemProcessed(ctx context.Context, feedURL, itemID string) (bool, error) {
	var found bool
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeProcessedKey(itemID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// CountProcessedItems returns the number of dedup markers stored.
func (r *FeedRepository) CountProcessedItems(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(processedPrefix + ":")
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

// DeleteProcessedBefore removes dedup markers processed before the cutoff.
// Markers carry no date index, so this is a full scan of the marker space.
func (r *FeedRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(processedPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var expired [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *core.ProcessedItem
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				item, unmarshalErr = storage.UnmarshalProcessedItem(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			if item.ProcessedAt.Before(cutoff) {
				expired = append(expired, iter.Item().KeyCopy(nil))
			}
		}
		iter.Close()

		for _, key := range expired {
			if err := tx.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// AddPendingItem queues an item for approval. An existing pending item
// for the same item id is left untouched.
func (r *FeedRepository) AddPendingItem(ctx context.Context, item *core.PendingItem) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePendingKey(item.ItemID)

		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		if item.QueuedAt.IsZero() {
			item.QueuedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalPendingItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetPendingItem retrieves a pending item by item id.
func (r *FeedRepository) GetPendingItem(ctx context.Context, itemID string) (*core.PendingItem, error) {
	var result *core.PendingItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePendingKey(itemID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalPendingItem(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListPendingItems retrieves all queued items, oldest first.
func (r *FeedRepository) ListPendingItems(ctx context.Context) ([]*core.PendingItem, error) {
	var results []*core.PendingItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var item *core.PendingItem
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				item, unmarshalErr = storage.UnmarshalPendingItem(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, item)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Keys are md5 hex, so iteration order is arbitrary
	slices.SortFunc(results, func(a, b *core.PendingItem) int {
		return a.QueuedAt.Compare(b.QueuedAt)
	})
	return results, nil
}

// DeletePendingItem removes a pending item by item id.
func (r *FeedRepository) DeletePendingItem(ctx context.Context, itemID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePendingKey(itemID)

		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
