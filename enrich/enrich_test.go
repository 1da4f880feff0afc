package enrich

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
)

func newContext(doc *core.RawDocument) *core.ProcessingContext {
	if doc.SourceMetadata == nil {
		doc.SourceMetadata = map[string]string{}
	}
	return core.NewProcessingContext(doc)
}

func TestFeedEnricher(t *testing.T) {
	enricher := &FeedEnricher{}

	doc := &core.RawDocument{
		SourceURL:   "https://blog.example.com/post",
		ContentType: core.ContentTypeFeedItem,
		SourceMetadata: map[string]string{
			"feed_url":        "https://blog.example.com/rss",
			"feed_item_id":    "abc123",
			"feed_author":     "jane@example.com (Jane)",
			"feed_categories": "kubernetes, observability",
		},
	}
	require.True(t, enricher.CanHandle(doc))

	pctx := newContext(doc)
	require.NoError(t, enricher.Enrich(pctx))

	assert.Equal(t, "rss", pctx.Metadata["source_type"])
	assert.Equal(t, "https://blog.example.com/rss", pctx.Metadata["feed_url"])
	assert.Equal(t, "abc123", pctx.Metadata["feed_item_id"])
	assert.Contains(t, pctx.Tags, "rss-content")
	assert.Contains(t, pctx.Tags, "kubernetes")
	assert.Contains(t, pctx.Tags, "observability")
}

func TestFeedEnricherCanHandleByMetadata(t *testing.T) {
	enricher := &FeedEnricher{}

	// HTML document fetched for a feed item still counts as feed sourced
	doc := &core.RawDocument{
		ContentType:    core.ContentTypeHTML,
		SourceMetadata: map[string]string{"feed_url": "https://example.com/rss"},
	}
	assert.True(t, enricher.CanHandle(doc))

	assert.False(t, enricher.CanHandle(&core.RawDocument{ContentType: core.ContentTypeHTML}))
}

func TestWordPressEnricher(t *testing.T) {
	enricher := &WordPressEnricher{}

	assert.True(t, enricher.CanHandle(&core.RawDocument{
		SourceURL: "https://example.com/wp-json/wp/v2/posts/42",
	}))
	assert.True(t, enricher.CanHandle(&core.RawDocument{
		SourceURL:      "https://example.com/post",
		SourceMetadata: map[string]string{"wordpress_post_id": "42"},
	}))
	assert.False(t, enricher.CanHandle(&core.RawDocument{
		SourceURL: "https://example.com/post",
	}))

	doc := &core.RawDocument{
		SourceURL: "https://example.com/wp-json/wp/v2/posts/42",
		SourceMetadata: map[string]string{
			"wordpress_post_id": "42",
			"wordpress_tags":    "golang, devops",
		},
	}
	pctx := newContext(doc)
	require.NoError(t, enricher.Enrich(pctx))

	assert.Equal(t, "wordpress", pctx.Metadata["source_type"])
	assert.Equal(t, "42", pctx.Metadata["wordpress_post_id"])
	assert.Contains(t, pctx.Tags, "wordpress-content")
	assert.Contains(t, pctx.Tags, "golang")
	assert.Contains(t, pctx.Tags, "devops")
}

func TestHTMLEnricher(t *testing.T) {
	enricher := &HTMLEnricher{}

	doc := &core.RawDocument{
		SourceURL:   "https://docs.example.com/guide",
		ContentType: core.ContentTypeHTML,
	}
	require.True(t, enricher.CanHandle(doc))

	pctx := newContext(doc)
	require.NoError(t, enricher.Enrich(pctx))

	assert.Equal(t, "html", pctx.Metadata["source_type"])
	assert.Equal(t, "web_page", pctx.Metadata["content_type"])
	assert.Contains(t, pctx.Tags, "html-content")
	assert.NotContains(t, pctx.Tags, "potential-wordpress")
}

func TestHTMLEnricherDetectsWordPressURL(t *testing.T) {
	enricher := &HTMLEnricher{}

	doc := &core.RawDocument{
		SourceURL:   "https://example.com/wp-content/uploads/page",
		ContentType: core.ContentTypeHTML,
	}
	pctx := newContext(doc)
	require.NoError(t, enricher.Enrich(pctx))

	assert.Contains(t, pctx.Tags, "potential-wordpress")
}

func TestPlainTextEnricher(t *testing.T) {
	enricher := &PlainTextEnricher{}

	doc := &core.RawDocument{
		SourceURL:   "https://example.com/README.md",
		ContentType: core.ContentTypeMarkdown,
	}
	require.True(t, enricher.CanHandle(doc))

	pctx := newContext(doc)
	require.NoError(t, enricher.Enrich(pctx))

	assert.Equal(t, "text", pctx.Metadata["source_type"])
	assert.Contains(t, pctx.Tags, "text-content")
	assert.Contains(t, pctx.Tags, "markdown")

	// Plain text does not get the markdown tag
	plain := newContext(&core.RawDocument{ContentType: core.ContentTypeText})
	require.NoError(t, enricher.Enrich(plain))
	assert.NotContains(t, plain.Tags, "markdown")
}

func TestFallbackEnricherOnlyFillsGaps(t *testing.T) {
	enricher := &FallbackEnricher{}

	// Nothing claimed the document yet
	pctx := newContext(&core.RawDocument{ContentType: core.ContentTypeHTML})
	require.NoError(t, enricher.Enrich(pctx))
	assert.Equal(t, "fallback", pctx.Metadata["source_type"])
	assert.Contains(t, pctx.Tags, "fallback-content")

	// An earlier enricher already claimed it
	claimed := newContext(&core.RawDocument{ContentType: core.ContentTypeHTML})
	claimed.SetMetadata("source_type", "html")
	require.NoError(t, enricher.Enrich(claimed))
	assert.Equal(t, "html", claimed.Metadata["source_type"])
	assert.NotContains(t, claimed.Tags, "fallback-content")
}

func TestChainIsAdditive(t *testing.T) {
	chain := DefaultChain()

	// A feed item whose content is HTML gets both feed and HTML enrichment
	doc := &core.RawDocument{
		SourceURL:   "https://blog.example.com/post",
		ContentType: core.ContentTypeHTML,
		SourceMetadata: map[string]string{
			"feed_url":     "https://blog.example.com/rss",
			"feed_item_id": "abc123",
		},
	}
	pctx := newContext(doc)
	chain.Apply(pctx)

	assert.Contains(t, pctx.Tags, "rss-content")
	assert.Contains(t, pctx.Tags, "html-content")
	assert.NotContains(t, pctx.Tags, "fallback-content")

	// The HTML enricher runs after the feed enricher, so source_type is html
	assert.Equal(t, "html", pctx.Metadata["source_type"])
	assert.Equal(t, "https://blog.example.com/rss", pctx.Metadata["feed_url"])
}

func TestChainFallbackOnlyWhenUnclaimed(t *testing.T) {
	chain := DefaultChain()

	pctx := newContext(&core.RawDocument{
		SourceURL:   "https://example.com/mystery",
		ContentType: core.ContentType(0),
	})
	chain.Apply(pctx)

	assert.Equal(t, "fallback", pctx.Metadata["source_type"])
	assert.Contains(t, pctx.Tags, "fallback-content")
}

type failingEnricher struct{}

func (e *failingEnricher) Name() string                     { return "failing" }
func (e *failingEnricher) CanHandle(*core.RawDocument) bool { return true }

func (e *failingEnricher) Enrich(*core.ProcessingContext) error {
	return errors.New("boom")
}

func TestChainEnricherFailureIsWarning(t *testing.T) {
	chain := NewChain(&failingEnricher{}, &FallbackEnricher{})

	pctx := newContext(&core.RawDocument{SourceURL: "https://example.com"})
	chain.Apply(pctx)

	// Failure becomes a warning and later enrichers still run
	require.Len(t, pctx.Warnings, 1)
	assert.Contains(t, pctx.Warnings[0], "failing")
	assert.Empty(t, pctx.Errors)
	assert.Equal(t, "fallback", pctx.Metadata["source_type"])
}
