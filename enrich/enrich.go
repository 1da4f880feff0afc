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


// Package enrich adds source-specific metadata and tags to documents
// moving through the ingestion pipeline.
//
// Enrichment is additive: every enricher whose CanHandle matches the
// document contributes, in registration order, and the fallback enricher
// guarantees baseline metadata for documents nothing else claims. A
// failing enricher records a warning and never aborts the chain.
package enrich

import (
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/core"
)

// Enricher adds source-specific metadata and tags to a processing context.
type Enricher interface {
	// Name identifies the enricher in logs and warnings.
	Name() string

	// CanHandle reports whether this enricher applies to the document.
	CanHandle(doc *core.RawDocument) bool

	// Enrich mutates the context's metadata and tags.
	Enrich(pctx *core.ProcessingContext) error
}

// Chain applies every matching enricher to a document in order.
type Chain struct {
	enrichers []Enricher
	logger    *slog.Logger
}

// NewChain creates a chain over the given enrichers. Order matters: the
// fallback enricher must come last so it can observe what earlier
// enrichers set.
func NewChain(enrichers ...Enricher) *Chain {
	return &Chain{
		enrichers: enrichers,
		logger:    slog.Default().With("component", "enricher-chain"),
	}
}

// DefaultChain creates a chain with the standard enrichers registered.
func DefaultChain() *Chain {
	return NewChain(
		&FeedEnricher{},
		&WordPressEnricher{},
		&HTMLEnricher{},
		&PlainTextEnricher{},
		&FallbackEnricher{},
	)
}

// Apply runs every matching enricher against the context. Enricher
// failures become context warnings, never chain failures.
func (c *Chain) Apply(pctx *core.ProcessingContext) {
	for _, enricher := range c.enrichers {
		if !enricher.CanHandle(pctx.Document) {
			continue
		}
		if err := enricher.Enrich(pctx); err != nil {
			c.logger.Warn("enricher failed",
				"enricher", enricher.Name(),
				"url", pctx.Document.SourceURL,
				"err", err)
			pctx.AddWarning("enricher %s failed: %v", enricher.Name(), err)
			continue
		}
		c.logger.Debug("enrichment applied",
			"enricher", enricher.Name(),
			"url", pctx.Document.SourceURL)
	}
}

// FeedEnricher enriches documents that originate from feed items.
type FeedEnricher struct{}

func (e *FeedEnricher) Name() string { return "feed" }

func (e *FeedEnricher) CanHandle(doc *core.RawDocument) bool {
	if doc.ContentType == core.ContentTypeFeedItem {
		return true
	}
	_, hasFeed := doc.SourceMetadata["feed_url"]
	_, hasItem := doc.SourceMetadata["feed_item_id"]
	return hasFeed || hasItem
}

func (e *FeedEnricher) Enrich(pctx *core.ProcessingContext) error {
	meta := pctx.Document.SourceMetadata

	pctx.SetMetadata("source_type", "rss")
	for _, key := range []string{"feed_url", "feed_item_id", "feed_name", "feed_description", "feed_author", "feed_published"} {
		if value, ok := meta[key]; ok && value != "" {
			pctx.SetMetadata(key, value)
		}
	}

	// Item categories carry over as tags
	if categories, ok := meta["feed_categories"]; ok && categories != "" {
		pctx.SetMetadata("feed_categories", categories)
		for _, category := range strings.Split(categories, ",") {
			pctx.AddTags(strings.TrimSpace(category))
		}
	}

	pctx.AddTags("rss-content")
	return nil
}

// WordPressEnricher enriches documents fetched from WordPress JSON APIs.
type WordPressEnricher struct{}

func (e *WordPressEnricher) Name() string { return "wordpress" }

func (e *WordPressEnricher) CanHandle(doc *core.RawDocument) bool {
	if _, ok := doc.SourceMetadata["wordpress_post_id"]; ok {
		return true
	}
	return strings.Contains(doc.SourceURL, "wp-json")
}

func (e *WordPressEnricher) Enrich(pctx *core.ProcessingContext) error {
	meta := pctx.Document.SourceMetadata

	pctx.SetMetadata("source_type", "wordpress")
	for _, key := range []string{"wordpress_post_id", "wordpress_author", "wordpress_json_url"} {
		if value, ok := meta[key]; ok && value != "" {
			pctx.SetMetadata(key, value)
		}
	}

	for _, key := range []string{"wordpress_categories", "wordpress_tags"} {
		if values, ok := meta[key]; ok && values != "" {
			pctx.SetMetadata(key, values)
			for _, value := range strings.Split(values, ",") {
				pctx.AddTags(strings.TrimSpace(value))
			}
		}
	}

	pctx.AddTags("wordpress-content")
	return nil
}

// HTMLEnricher enriches general HTML documents.
type HTMLEnricher struct{}

func (e *HTMLEnricher) Name() string { return "html" }

func (e *HTMLEnricher) CanHandle(doc *core.RawDocument) bool {
	return doc.ContentType == core.ContentTypeHTML
}

func (e *HTMLEnricher) Enrich(pctx *core.ProcessingContext) error {
	pctx.SetMetadata("source_type", "html")
	pctx.SetMetadata("content_type", "web_page")
	pctx.AddTags("html-content")

	// URL pattern hint for WordPress sites served as plain HTML
	url := pctx.Document.SourceURL
	if strings.Contains(url, "wp-") || strings.Contains(url, "/wp/") {
		pctx.AddTags("potential-wordpress")
	}
	return nil
}

// PlainTextEnricher enriches plain text and markdown documents.
type PlainTextEnricher struct{}

func (e *PlainTextEnricher) Name() string { return "plaintext" }

func (e *PlainTextEnricher) CanHandle(doc *core.RawDocument) bool {
	return doc.ContentType == core.ContentTypeText || doc.ContentType == core.ContentTypeMarkdown
}

func (e *PlainTextEnricher) Enrich(pctx *core.ProcessingContext) error {
	pctx.SetMetadata("source_type", "text")
	pctx.SetMetadata("content_type", pctx.Document.ContentType.String())
	pctx.AddTags("text-content")

	if pctx.Document.ContentType == core.ContentTypeMarkdown {
		pctx.AddTags("markdown")
	}
	return nil
}

// FallbackEnricher guarantees baseline metadata for documents no other
// enricher claimed. It always matches and must be registered last.
type FallbackEnricher struct{}

func (e *FallbackEnricher) Name() string { return "fallback" }

func (e *FallbackEnricher) CanHandle(doc *core.RawDocument) bool {
	return true
}

func (e *FallbackEnricher) Enrich(pctx *core.ProcessingContext) error {
	// Only contribute when no earlier enricher claimed the document
	if _, ok := pctx.Metadata["source_type"]; ok {
		return nil
	}
	pctx.SetMetadata("source_type", "fallback")
	pctx.SetMetadata("original_content_type", pctx.Document.ContentType.String())
	pctx.AddTags("fallback-content")
	return nil
}
