package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

func TestSubscriptionBasics(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	sub := &core.Subscription{
		FeedURL: "https://blog.example.com/feed.xml",
		Name:    "Example Blog",
		Tags:    []string{"rss-content"},
		Enabled: true,
	}

	if err := feedRepo.AddSubscription(ctx, sub); err != nil {
		t.Fatalf("Failed to add subscription: %v", err)
	}
	if sub.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set on add")
	}

	// Duplicate feed URL is rejected
	dup := &core.Subscription{FeedURL: sub.FeedURL, Name: "Other"}
	if err := feedRepo.AddSubscription(ctx, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	retrieved, err := feedRepo.GetSubscription(ctx, sub.FeedURL)
	if err != nil {
		t.Fatalf("Failed to get subscription: %v", err)
	}
	if retrieved.Name != "Example Blog" {
		t.Fatalf("Expected 'Example Blog', got '%s'", retrieved.Name)
	}

	subs, err := feedRepo.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("Failed to list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("Expected 1 subscription, got %d", len(subs))
	}
}

func TestUpdateSubscription(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	sub := &core.Subscription{FeedURL: "https://blog.example.com/feed.xml", Name: "Example Blog", Enabled: true}
	if err := feedRepo.AddSubscription(ctx, sub); err != nil {
		t.Fatalf("Failed to add subscription: %v", err)
	}

	sub.FetchFailures = 3
	sub.Enabled = false
	if err := feedRepo.UpdateSubscription(ctx, sub); err != nil {
		t.Fatalf("Failed to update subscription: %v", err)
	}

	retrieved, err := feedRepo.GetSubscription(ctx, sub.FeedURL)
	if err != nil {
		t.Fatalf("Failed to get subscription: %v", err)
	}
	if retrieved.FetchFailures != 3 || retrieved.Enabled {
		t.Fatalf("Expected failures=3 enabled=false, got failures=%d enabled=%v", retrieved.FetchFailures, retrieved.Enabled)
	}

	// Updating a missing subscription fails
	missing := &core.Subscription{FeedURL: "https://other.example.com/feed.xml"}
	if err := feedRepo.UpdateSubscription(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSubscription(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	sub := &core.Subscription{FeedURL: "https://blog.example.com/feed.xml", Name: "Example Blog"}
	if err := feedRepo.AddSubscription(ctx, sub); err != nil {
		t.Fatalf("Failed to add subscription: %v", err)
	}

	if err := feedRepo.DeleteSubscription(ctx, sub.FeedURL); err != nil {
		t.Fatalf("Failed to delete subscription: %v", err)
	}
	if err := feedRepo.DeleteSubscription(ctx, sub.FeedURL); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestProcessedItemLifecycle(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	feedURL := "https://blog.example.com/feed.xml"
	itemID := core.FeedItemID(feedURL, "post-1")

	processed, err := feedRepo.IsItemProcessed(ctx, feedURL, itemID)
	if err != nil {
		t.Fatalf("Failed to check processed: %v", err)
	}
	if processed {
		t.Fatal("Expected item not processed")
	}

	item := &core.ProcessedItem{FeedURL: feedURL, ItemID: itemID}
	if err := feedRepo.MarkItemProcessed(ctx, item); err != nil {
		t.Fatalf("Failed to mark processed: %v", err)
	}

	// Idempotent: marking again succeeds
	if err := feedRepo.MarkItemProcessed(ctx, item); err != nil {
		t.Fatalf("Failed to re-mark processed: %v", err)
	}

	processed, err = feedRepo.IsItemProcessed(ctx, feedURL, itemID)
	if err != nil {
		t.Fatalf("Failed to check processed: %v", err)
	}
	if !processed {
		t.Fatal("Expected item processed")
	}

	count, err := feedRepo.CountProcessedItems(ctx)
	if err != nil {
		t.Fatalf("Failed to count processed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 marker, got %d", count)
	}
}

func TestDeleteProcessedBefore(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	feedURL := "https://blog.example.com/feed.xml"
	now := time.Now().UTC()

	old := &core.ProcessedItem{
		FeedURL:     feedURL,
		ItemID:      core.FeedItemID(feedURL, "old-post"),
		ProcessedAt: now.Add(-48 * time.Hour),
	}
	recent := &core.ProcessedItem{
		FeedURL:     feedURL,
		ItemID:      core.FeedItemID(feedURL, "recent-post"),
		ProcessedAt: now,
	}

	if err := feedRepo.MarkItemProcessed(ctx, old); err != nil {
		t.Fatalf("Failed to mark processed: %v", err)
	}
	if err := feedRepo.MarkItemProcessed(ctx, recent); err != nil {
		t.Fatalf("Failed to mark processed: %v", err)
	}

	removed, err := feedRepo.DeleteProcessedBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to delete processed markers: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 marker removed, got %d", removed)
	}

	processed, err := feedRepo.IsItemProcessed(ctx, feedURL, recent.ItemID)
	if err != nil {
		t.Fatalf("Failed to check processed: %v", err)
	}
	if !processed {
		t.Fatal("Expected recent marker to survive")
	}
}

func TestPendingItemLifecycle(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	feedURL := "https://blog.example.com/feed.xml"
	now := time.Now().UTC().Truncate(time.Microsecond)

	newer := &core.PendingItem{
		FeedURL:  feedURL,
		ItemID:   core.FeedItemID(feedURL, "post-2"),
		Title:    "Newer Post",
		QueuedAt: now,
	}
	older := &core.PendingItem{
		FeedURL:  feedURL,
		ItemID:   core.FeedItemID(feedURL, "post-1"),
		Title:    "Older Post",
		QueuedAt: now.Add(-time.Hour),
	}

	if err := feedRepo.AddPendingItem(ctx, newer); err != nil {
		t.Fatalf("Failed to add pending item: %v", err)
	}
	if err := feedRepo.AddPendingItem(ctx, older); err != nil {
		t.Fatalf("Failed to add pending item: %v", err)
	}

	// Re-queueing leaves the existing item untouched
	requeue := &core.PendingItem{FeedURL: feedURL, ItemID: older.ItemID, Title: "Changed Title"}
	if err := feedRepo.AddPendingItem(ctx, requeue); err != nil {
		t.Fatalf("Failed to re-add pending item: %v", err)
	}
	retrieved, err := feedRepo.GetPendingItem(ctx, older.ItemID)
	if err != nil {
		t.Fatalf("Failed to get pending item: %v", err)
	}
	if retrieved.Title != "Older Post" {
		t.Fatalf("Expected original title to survive re-queue, got '%s'", retrieved.Title)
	}

	items, err := feedRepo.ListPendingItems(ctx)
	if err != nil {
		t.Fatalf("Failed to list pending items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 pending items, got %d", len(items))
	}
	if items[0].Title != "Older Post" {
		t.Fatalf("Expected oldest first, got '%s'", items[0].Title)
	}

	if err := feedRepo.DeletePendingItem(ctx, older.ItemID); err != nil {
		t.Fatalf("Failed to delete pending item: %v", err)
	}
	if _, err := feedRepo.GetPendingItem(ctx, older.ItemID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := feedRepo.DeletePendingItem(ctx, older.ItemID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on double delete, got %v", err)
	}
}
