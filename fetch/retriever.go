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


// Package fetch retrieves raw documents from the web and from RSS/Atom
// feeds. The page retriever consults the host handler chain for URL
// candidates and tries them in order, detects markdown files by
// extension, and prefers the WordPress JSON API when a page advertises
// one.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/poiesic/corpus/convert"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/hosts"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxContentSize = 10 << 20 // 10 MiB
	defaultUserAgent      = "corpus/1.0 (+https://github.com/poiesic/corpus)"
)

// Retriever fetches web pages and produces raw documents for the
// pipeline.
type Retriever struct {
	client         *http.Client
	hosts          *hosts.Chain
	userAgent      string
	maxContentSize int64
	logger         *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) RetrieverOption {
	return func(r *Retriever) {
		r.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) RetrieverOption {
	return func(r *Retriever) {
		r.userAgent = userAgent
	}
}

// WithMaxContentSize overrides the response size limit in bytes.
func WithMaxContentSize(limit int64) RetrieverOption {
	return func(r *Retriever) {
		r.maxContentSize = limit
	}
}

// WithRetrieverLogger overrides the logger.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger.With("component", "retriever")
	}
}

// NewRetriever creates a page retriever routing through the given host
// handler chain.
func NewRetriever(hostChain *hosts.Chain, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		hosts:          hostChain,
		userAgent:      defaultUserAgent,
		maxContentSize: defaultMaxContentSize,
		logger:         slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve fetches the document behind rawURL. The host handler chain
// supplies URL candidates which are tried in order; the first success
// wins. The returned document keeps rawURL as its source URL even when
// a rewritten candidate supplied the bytes.
func (r *Retriever) Retrieve(ctx context.Context, rawURL string) (*core.RawDocument, error) {
	handler := r.hosts.HandlerFor(rawURL)
	candidates := handler.URLCandidates(rawURL)

	var lastErr error
	for _, candidate := range candidates {
		doc, err := r.retrieveOne(ctx, candidate, rawURL)
		if err != nil {
			r.logger.Debug("candidate fetch failed", "candidate", candidate, "err", err)
			lastErr = err
			continue
		}
		if candidate != rawURL {
			doc.SourceMetadata["fetched_url"] = candidate
		}
		return doc, nil
	}

	return nil, fmt.Errorf("%w: no candidate for %s succeeded: %w", core.ErrFetch, rawURL, lastErr)
}

func (r *Retriever) retrieveOne(ctx context.Context, fetchURL, sourceURL string) (*core.RawDocument, error) {
	body, contentType, err := r.fetchBytes(ctx, fetchURL)
	if err != nil {
		return nil, err
	}

	if isMarkdownURL(fetchURL) || strings.Contains(contentType, "text/markdown") {
		content := string(body)
		return &core.RawDocument{
			Content:        content,
			SourceURL:      sourceURL,
			Title:          convert.ExtractMarkdownTitle(content),
			ContentType:    core.ContentTypeMarkdown,
			SourceMetadata: map[string]string{},
			CreatedAt:      time.Now(),
		}, nil
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// Unparseable HTML still goes to the converter as-is
		return &core.RawDocument{
			Content:        string(body),
			SourceURL:      sourceURL,
			ContentType:    core.ContentTypeHTML,
			SourceMetadata: map[string]string{},
			CreatedAt:      time.Now(),
		}, nil
	}

	// A WordPress page advertises its JSON API form via a link element.
	// Structured content beats scraping when it is available.
	if jsonURL := discoverWordPressJSON(page, fetchURL); jsonURL != "" {
		doc, err := r.retrieveWordPress(ctx, jsonURL, sourceURL)
		if err == nil {
			return doc, nil
		}
		r.logger.Warn("wordpress json fetch failed, using html",
			"json_url", jsonURL, "err", err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	return &core.RawDocument{
		Content:        string(body),
		SourceURL:      sourceURL,
		Title:          title,
		ContentType:    core.ContentTypeHTML,
		SourceMetadata: map[string]string{},
		CreatedAt:      time.Now(),
	}, nil
}

// wordpressPost is the subset of the wp-json post payload we consume.
type wordpressPost struct {
	ID          int    `json:"id"`
	DateGMT     string `json:"date_gmt"`
	ModifiedGMT string `json:"modified_gmt"`
	Author      int    `json:"author"`
	Title       struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
}

func (r *Retriever) retrieveWordPress(ctx context.Context, jsonURL, sourceURL string) (*core.RawDocument, error) {
	body, _, err := r.fetchBytes(ctx, jsonURL)
	if err != nil {
		return nil, err
	}

	var post wordpressPost
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("decode wp-json payload: %w", err)
	}
	if post.ID == 0 || post.Content.Rendered == "" {
		return nil, fmt.Errorf("wp-json payload has no post content")
	}

	meta := map[string]string{
		"wordpress_post_id":  strconv.Itoa(post.ID),
		"wordpress_json_url": jsonURL,
	}
	if post.Author != 0 {
		meta["wordpress_author"] = strconv.Itoa(post.Author)
	}
	if post.ModifiedGMT != "" {
		if t, err := parseGMT(post.ModifiedGMT); err == nil {
			meta["wordpress_modified"] = t.Format(time.RFC3339)
		}
	}

	createdAt := time.Now()
	if post.DateGMT != "" {
		if t, err := parseGMT(post.DateGMT); err == nil {
			createdAt = t
		}
	}

	return &core.RawDocument{
		Content:        post.Content.Rendered,
		SourceURL:      sourceURL,
		Title:          strings.TrimSpace(post.Title.Rendered),
		ContentType:    core.ContentTypeHTML,
		SourceMetadata: meta,
		CreatedAt:      createdAt,
	}, nil
}

func (r *Retriever) fetchBytes(ctx context.Context, fetchURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: HTTP %d for %s", core.ErrFetch, resp.StatusCode, fetchURL)
	}

	limited := io.LimitReader(resp.Body, r.maxContentSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %w", core.ErrFetch, err)
	}
	if int64(len(body)) > r.maxContentSize {
		return nil, "", fmt.Errorf("%w: content exceeds %d bytes", core.ErrFetch, r.maxContentSize)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// discoverWordPressJSON finds a wp-json alternate link on an HTML page.
func discoverWordPressJSON(page *goquery.Document, pageURL string) string {
	href, ok := page.Find(`link[rel='alternate'][type='application/json']`).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	if !strings.Contains(href, "wp-json") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func isMarkdownURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(rawURL, ".md") || strings.HasSuffix(rawURL, ".markdown")
	}
	path := strings.ToLower(parsed.Path)
	return strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".markdown")
}

// parseGMT parses a WordPress GMT timestamp, which omits the zone suffix.
func parseGMT(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		s += "Z"
	}
	return time.Parse(time.RFC3339, s)
}
