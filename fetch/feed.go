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


package fetch

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/poiesic/corpus/core"
)

// FeedInfo is the feed-level metadata from a parsed feed.
type FeedInfo struct {
	Title       string
	Link        string
	Description string
}

// FeedFetcher retrieves and normalizes RSS/Atom feeds.
type FeedFetcher struct {
	userAgent string
}

// NewFeedFetcher creates a feed fetcher.
func NewFeedFetcher() *FeedFetcher {
	return &FeedFetcher{userAgent: defaultUserAgent}
}

// Fetch downloads and parses a feed. Items are returned in feed order
// with identifiers, authors, and timestamps normalized.
//
// A fresh gofeed parser is created per call so Fetch is safe to use
// from the monitor's worker pool.
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL string) (*FeedInfo, []core.FeedItem, error) {
	parser := gofeed.NewParser()
	parser.UserAgent = f.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse feed %s: %w", core.ErrFetch, feedURL, err)
	}

	info := &FeedInfo{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
	}

	items := make([]core.FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, normalizeItem(item))
	}

	return info, items, nil
}

func normalizeItem(item *gofeed.Item) core.FeedItem {
	normalized := core.FeedItem{
		NativeID:    cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		Author:      extractAuthor(item),
	}

	if item.PublishedParsed != nil {
		normalized.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		normalized.Published = *item.UpdatedParsed
	} else {
		normalized.Published = time.Now()
	}

	if item.Categories != nil {
		normalized.Categories = item.Categories
	}

	return normalized
}

// extractAuthor returns the first item author as "email (name)" when
// both parts are present.
func extractAuthor(item *gofeed.Item) string {
	var name, email string
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		name, email = item.Authors[0].Name, item.Authors[0].Email
	} else if item.Author != nil {
		name, email = item.Author.Name, item.Author.Email
	}
	return formatAuthor(name, email)
}

func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s (%s)", email, name)
	case name != "":
		return name
	default:
		return email
	}
}
