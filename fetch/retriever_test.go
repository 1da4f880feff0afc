package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/hosts"
)

// stubHandler returns a fixed candidate list so tests can exercise the
// multi-candidate fallback without real host URLs.
type stubHandler struct {
	candidates []string
}

func (h *stubHandler) Name() string                  { return "stub" }
func (h *stubHandler) CanHandle(string) bool         { return true }
func (h *stubHandler) URLCandidates(string) []string { return h.candidates }

func (h *stubHandler) ProcessLinks(links []core.Link, sourceURL string) []core.Link {
	return links
}

func (h *stubHandler) Metadata(string, string) map[string]string { return nil }

func newTestRetriever() *Retriever {
	return NewRetriever(hosts.DefaultChain())
}

func TestRetrieveHTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Guide Page</title></head><body><p>hello</p></body></html>`))
	}))
	defer server.Close()

	doc, err := newTestRetriever().Retrieve(context.Background(), server.URL+"/guide")
	require.NoError(t, err)

	assert.Equal(t, core.ContentTypeHTML, doc.ContentType)
	assert.Equal(t, "Guide Page", doc.Title)
	assert.Equal(t, server.URL+"/guide", doc.SourceURL)
	assert.Contains(t, doc.Content, "hello")
}

func TestRetrieveMarkdownByExtension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Project Readme\n\nSome content here."))
	}))
	defer server.Close()

	doc, err := newTestRetriever().Retrieve(context.Background(), server.URL+"/README.md")
	require.NoError(t, err)

	assert.Equal(t, core.ContentTypeMarkdown, doc.ContentType)
	assert.Equal(t, "Project Readme", doc.Title)
	assert.Contains(t, doc.Content, "Some content here.")
}

func TestRetrieveWordPressDiscovery(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
<title>HTML Title</title>
<link rel="alternate" type="application/json" href="/wp-json/wp/v2/posts/42" />
</head><body><p>scraped body</p></body></html>`))
	})
	mux.HandleFunc("/wp-json/wp/v2/posts/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 42,
			"date_gmt": "2025-03-01T10:00:00",
			"author": 7,
			"title": {"rendered": "Structured Title"},
			"content": {"rendered": "<p>structured body</p>"}
		}`))
	})

	doc, err := newTestRetriever().Retrieve(context.Background(), server.URL+"/post")
	require.NoError(t, err)

	assert.Equal(t, "Structured Title", doc.Title)
	assert.Contains(t, doc.Content, "structured body")
	assert.Equal(t, "42", doc.SourceMetadata["wordpress_post_id"])
	assert.Equal(t, "7", doc.SourceMetadata["wordpress_author"])
	assert.Equal(t, 2025, doc.CreatedAt.Year())
}

func TestRetrieveWordPressFailureFallsBackToHTML(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
<title>HTML Title</title>
<link rel="alternate" type="application/json" href="/wp-json/wp/v2/posts/42" />
</head><body><p>scraped body</p></body></html>`))
	})
	mux.HandleFunc("/wp-json/wp/v2/posts/42", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	doc, err := newTestRetriever().Retrieve(context.Background(), server.URL+"/post")
	require.NoError(t, err)

	assert.Equal(t, "HTML Title", doc.Title)
	assert.Contains(t, doc.Content, "scraped body")
	assert.Empty(t, doc.SourceMetadata["wordpress_post_id"])
}

func TestRetrieveCandidateFallback(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/found.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Found\n\nbody"))
	})

	chain := hosts.NewChain(&stubHandler{candidates: []string{
		server.URL + "/missing",
		server.URL + "/found.md",
	}})

	doc, err := NewRetriever(chain).Retrieve(context.Background(), server.URL+"/missing")
	require.NoError(t, err)

	assert.Equal(t, "Found", doc.Title)
	assert.Equal(t, server.URL+"/missing", doc.SourceURL)
	assert.Equal(t, server.URL+"/found.md", doc.SourceMetadata["fetched_url"])
}

func TestRetrieveAllCandidatesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestRetriever().Retrieve(context.Background(), server.URL+"/gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
}

func TestRetrieveContentSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>this response is larger than the configured limit</body></html>`))
	}))
	defer server.Close()

	retriever := NewRetriever(hosts.DefaultChain(), WithMaxContentSize(16))
	_, err := retriever.Retrieve(context.Background(), server.URL+"/big")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
}

func TestIsMarkdownURL(t *testing.T) {
	assert.True(t, isMarkdownURL("https://example.com/README.md"))
	assert.True(t, isMarkdownURL("https://example.com/doc.markdown?plain=1"))
	assert.False(t, isMarkdownURL("https://example.com/page.html"))
	assert.False(t, isMarkdownURL("https://example.com/md"))
}

func TestParseGMT(t *testing.T) {
	parsed, err := parseGMT("2025-03-01T10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), parsed)
}
