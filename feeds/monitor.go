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


package feeds

import (
	"cmp"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/fetch"
	"github.com/poiesic/corpus/pipeline"
	"github.com/poiesic/corpus/storage"
)

// DocumentProcessor runs a raw document through the ingestion pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *core.RawDocument, opts *pipeline.ProcessOptions) (*pipeline.Result, error)
}

// FeedSource fetches and parses a feed URL.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) (*fetch.FeedInfo, []core.FeedItem, error)
}

// Monitor polls feed subscriptions and drives each item through the
// unseen, pending, processed lifecycle.
type Monitor struct {
	feeds            storage.FeedRepository
	processor        DocumentProcessor
	source           FeedSource
	pool             *ants.Pool
	failureThreshold int
	logger           *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor) error

// WithPoolSize sets the worker pool size for polling subscriptions
// concurrently. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(m *Monitor) error {
		if size < 1 {
			size = 1
		}
		if m.pool != nil {
			m.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		m.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "feed-monitor")
		return nil
	}
}

// WithFailureThreshold sets how many consecutive fetch failures a feed
// tolerates before the failure is escalated to a warning log.
// Default is 3.
func WithFailureThreshold(n int) Option {
	return func(m *Monitor) error {
		if n > 0 {
			m.failureThreshold = n
		}
		return nil
	}
}

// NewMonitor creates a feed monitor.
func NewMonitor(
	feedRepository storage.FeedRepository,
	processor DocumentProcessor,
	source FeedSource,
	opts ...Option,
) (*Monitor, error) {
	if feedRepository == nil {
		return nil, ErrFeedRepositoryRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if source == nil {
		return nil, ErrFeedSourceRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		feeds:            feedRepository,
		processor:        processor,
		source:           source,
		pool:             pool,
		failureThreshold: 3,
		logger:           slog.Default().With("component", "feed-monitor"),
	}

	for _, opt := range opts {
		if optErr := opt(m); optErr != nil {
			m.Release()
			return nil, optErr
		}
	}

	return m, nil
}

// Release releases the worker pool.
// The monitor should not be used after calling Release.
func (m *Monitor) Release() {
	if m.pool != nil {
		m.pool.Release()
	}
}

// CheckReport summarizes one poll cycle.
type CheckReport struct {
	Subscriptions int // enabled subscriptions polled
	NewItems      int // items not previously processed
	Ingested      int // items ingested (auto-ingest mode)
	Queued        int // items newly queued for approval
	Skipped       int // items with an existing processed marker
	FeedErrors    int // feeds whose fetch failed this cycle
}

// CheckFeeds polls every enabled subscription once. Subscriptions are
// polled concurrently; a failure in one feed or one item never aborts
// the others. In auto-ingest mode unseen items run through the pipeline
// immediately; otherwise they are queued as pending items for approval.
func (m *Monitor) CheckFeeds(ctx context.Context, autoIngest bool) (*CheckReport, error) {
	subs, err := m.feeds.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		report.Subscriptions++

		wg.Add(1)
		submitErr := m.pool.Submit(func() {
			defer wg.Done()

			local := m.checkSubscription(ctx, sub, autoIngest)

			mu.Lock()
			report.NewItems += local.NewItems
			report.Ingested += local.Ingested
			report.Queued += local.Queued
			report.Skipped += local.Skipped
			report.FeedErrors += local.FeedErrors
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			m.logger.Error("failed to submit feed check", "feed", sub.FeedURL, "err", submitErr)
		}
	}
	wg.Wait()

	m.logger.Info("poll cycle complete",
		"subscriptions", report.Subscriptions,
		"new_items", report.NewItems,
		"ingested", report.Ingested,
		"queued", report.Queued,
		"skipped", report.Skipped,
		"feed_errors", report.FeedErrors)

	return report, nil
}

func (m *Monitor) checkSubscription(ctx context.Context, sub *core.Subscription, autoIngest bool) *CheckReport {
	report := &CheckReport{}
	now := time.Now()

	info, items, err := m.source.Fetch(ctx, sub.FeedURL)
	if err != nil {
		report.FeedErrors++
		sub.FetchFailures++
		sub.LastChecked = now

		if sub.FetchFailures >= m.failureThreshold {
			m.logger.Warn("feed failing repeatedly",
				"feed", sub.FeedURL, "consecutive_failures", sub.FetchFailures, "err", err)
		} else {
			m.logger.Debug("feed fetch failed", "feed", sub.FeedURL, "err", err)
		}
		m.updateSubscription(ctx, sub)
		return report
	}
	sub.FetchFailures = 0

	lastSeen := sub.LastItemSeen
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if item.Published.After(lastSeen) {
			lastSeen = item.Published
		}

		itemID := core.FeedItemID(sub.FeedURL, item.NativeID)
		processed, err := m.feeds.IsItemProcessed(ctx, sub.FeedURL, itemID)
		if err != nil {
			m.logger.Error("processed lookup failed", "feed", sub.FeedURL, "item", itemID, "err", err)
			continue
		}
		if processed {
			report.Skipped++
			continue
		}
		report.NewItems++

		if autoIngest {
			if m.ingestItem(ctx, sub, info, item, itemID) {
				report.Ingested++
			}
			continue
		}

		if err := m.queueItem(ctx, sub, info, item, itemID); err != nil {
			m.logger.Error("failed to queue item", "feed", sub.FeedURL, "item", itemID, "err", err)
			continue
		}
		report.Queued++
	}

	sub.LastChecked = now
	sub.LastItemSeen = lastSeen
	m.updateSubscription(ctx, sub)

	return report
}

// ingestItem runs one feed item through the pipeline. On failure the
// item stays unseen and is retried on the next poll. An item with no
// usable link or content can never be ingested, so it is marked
// processed instead of being re-warned on every poll.
func (m *Monitor) ingestItem(ctx context.Context, sub *core.Subscription, info *fetch.FeedInfo, item core.FeedItem, itemID string) bool {
	doc := itemDocument(sub, info, item, itemID)
	if doc == nil {
		m.logger.Warn("feed item has no usable link or content, skipping permanently",
			"feed", sub.FeedURL, "item", itemID)
		if err := m.feeds.MarkItemProcessed(ctx, &core.ProcessedItem{
			FeedURL: sub.FeedURL,
			ItemID:  itemID,
		}); err != nil {
			m.logger.Error("failed to mark item processed", "feed", sub.FeedURL, "item", itemID, "err", err)
		}
		return false
	}

	if _, err := m.processor.Process(ctx, doc, nil); err != nil {
		m.logger.Warn("item ingestion failed, will retry next poll",
			"feed", sub.FeedURL, "item", itemID, "err", err)
		return false
	}

	if err := m.feeds.MarkItemProcessed(ctx, &core.ProcessedItem{
		FeedURL: sub.FeedURL,
		ItemID:  itemID,
	}); err != nil {
		m.logger.Error("failed to mark item processed", "feed", sub.FeedURL, "item", itemID, "err", err)
		return false
	}
	return true
}

func (m *Monitor) queueItem(ctx context.Context, sub *core.Subscription, info *fetch.FeedInfo, item core.FeedItem, itemID string) error {
	feedName := sub.Name
	if feedName == "" && info != nil {
		feedName = info.Title
	}

	return m.feeds.AddPendingItem(ctx, &core.PendingItem{
		FeedURL:     sub.FeedURL,
		ItemID:      itemID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		Author:      item.Author,
		Published:   item.Published,
		Categories:  item.Categories,
		FeedName:    feedName,
		FeedTags:    sub.Tags,
	})
}

func (m *Monitor) updateSubscription(ctx context.Context, sub *core.Subscription) {
	if err := m.feeds.UpdateSubscription(ctx, sub); err != nil {
		m.logger.Error("failed to update subscription", "feed", sub.FeedURL, "err", err)
	}
}

// ApprovalReport summarizes an approve or reject batch.
type ApprovalReport struct {
	Succeeded []string // item ids fully handled
	Failed    []string // item ids left pending for retry
}

// Approve ingests the named pending items. Each item is independent: a
// pipeline failure leaves that item pending for retry while the rest of
// the batch proceeds.
func (m *Monitor) Approve(ctx context.Context, itemIDs []string) (*ApprovalReport, error) {
	report := &ApprovalReport{}

	for _, itemID := range itemIDs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		pending, err := m.feeds.GetPendingItem(ctx, itemID)
		if err != nil {
			m.logger.Warn("pending item not found", "item", itemID, "err", err)
			report.Failed = append(report.Failed, itemID)
			continue
		}

		doc := pendingDocument(pending)
		if doc == nil {
			m.logger.Warn("pending item has no usable link", "item", itemID)
			report.Failed = append(report.Failed, itemID)
			continue
		}

		if _, err := m.processor.Process(ctx, doc, nil); err != nil {
			m.logger.Warn("approval ingestion failed, item left pending",
				"item", itemID, "err", err)
			report.Failed = append(report.Failed, itemID)
			continue
		}

		if err := m.finishPending(ctx, pending); err != nil {
			report.Failed = append(report.Failed, itemID)
			continue
		}
		report.Succeeded = append(report.Succeeded, itemID)
	}

	return report, nil
}

// Reject marks the named pending items processed without running the
// pipeline, so they are never queued or ingested again.
func (m *Monitor) Reject(ctx context.Context, itemIDs []string) (*ApprovalReport, error) {
	report := &ApprovalReport{}

	for _, itemID := range itemIDs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		pending, err := m.feeds.GetPendingItem(ctx, itemID)
		if err != nil {
			m.logger.Warn("pending item not found", "item", itemID, "err", err)
			report.Failed = append(report.Failed, itemID)
			continue
		}

		if err := m.finishPending(ctx, pending); err != nil {
			report.Failed = append(report.Failed, itemID)
			continue
		}
		report.Succeeded = append(report.Succeeded, itemID)
	}

	return report, nil
}

// PendingItemIDs returns the ids of every queued item, oldest first.
func (m *Monitor) PendingItemIDs(ctx context.Context) ([]string, error) {
	items, err := m.feeds.ListPendingItems(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ItemID
	}
	return ids, nil
}

// Cleanup deletes processed-item markers older than the given number of
// days. Returns the number removed. Safe only because feeds are assumed
// not to resurrect item ids older than the retention window.
func (m *Monitor) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed, err := m.feeds.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.logger.Info("cleanup complete", "removed", removed, "older_than_days", olderThanDays)
	return removed, nil
}

// finishPending writes the processed marker and removes the pending
// record. Marker first: a crash between the two leaves a harmless
// orphaned pending item rather than a re-ingestable one.
func (m *Monitor) finishPending(ctx context.Context, pending *core.PendingItem) error {
	if err := m.feeds.MarkItemProcessed(ctx, &core.ProcessedItem{
		FeedURL: pending.FeedURL,
		ItemID:  pending.ItemID,
	}); err != nil {
		m.logger.Error("failed to mark item processed", "item", pending.ItemID, "err", err)
		return err
	}
	if err := m.feeds.DeletePendingItem(ctx, pending.ItemID); err != nil {
		m.logger.Error("failed to delete pending item", "item", pending.ItemID, "err", err)
		return err
	}
	return nil
}

// itemDocument builds the raw document for a feed item. Returns nil
// when the item has no link to serve as a source URL.
func itemDocument(sub *core.Subscription, info *fetch.FeedInfo, item core.FeedItem, itemID string) *core.RawDocument {
	if item.Link == "" {
		return nil
	}

	content := cmp.Or(item.Content, item.Description)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	feedName := sub.Name
	feedDescription := ""
	if info != nil {
		if feedName == "" {
			feedName = info.Title
		}
		feedDescription = info.Description
	}

	meta := map[string]string{
		"feed_url":     sub.FeedURL,
		"feed_item_id": itemID,
	}
	if feedName != "" {
		meta["feed_name"] = feedName
	}
	if feedDescription != "" {
		meta["feed_description"] = feedDescription
	}
	if item.Author != "" {
		meta["feed_author"] = item.Author
	}
	if !item.Published.IsZero() {
		meta["feed_published"] = item.Published.Format(time.RFC3339)
	}
	if len(item.Categories) > 0 {
		meta["feed_categories"] = strings.Join(item.Categories, ",")
	}

	return &core.RawDocument{
		Content:        content,
		SourceURL:      item.Link,
		Title:          item.Title,
		ContentType:    core.ContentTypeFeedItem,
		SourceMetadata: meta,
		Tags:           sub.Tags,
		CreatedAt:      item.Published,
	}
}

// pendingDocument rebuilds the raw document for an approved item from
// its stored pending record.
func pendingDocument(pending *core.PendingItem) *core.RawDocument {
	if pending.Link == "" {
		return nil
	}

	content := cmp.Or(pending.Content, pending.Description)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	meta := map[string]string{
		"feed_url":     pending.FeedURL,
		"feed_item_id": pending.ItemID,
	}
	if pending.FeedName != "" {
		meta["feed_name"] = pending.FeedName
	}
	if pending.Author != "" {
		meta["feed_author"] = pending.Author
	}
	if !pending.Published.IsZero() {
		meta["feed_published"] = pending.Published.Format(time.RFC3339)
	}
	if len(pending.Categories) > 0 {
		meta["feed_categories"] = strings.Join(pending.Categories, ",")
	}

	return &core.RawDocument{
		Content:        content,
		SourceURL:      pending.Link,
		Title:          pending.Title,
		ContentType:    core.ContentTypeFeedItem,
		SourceMetadata: meta,
		Tags:           pending.FeedTags,
		CreatedAt:      pending.Published,
	}
}
