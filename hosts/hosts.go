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


// Package hosts rewrites URLs and extracted links for specific hosting
// platforms.
//
// Unlike enrichment, host handling is exclusive: the first handler whose
// CanHandle matches a URL owns it, and the fallback handler owns
// everything else. Handlers never perform network requests themselves;
// URLCandidates returns an ordered list for the fetch layer to try.
package hosts

import (
	"net/url"
	"strings"

	"github.com/poiesic/corpus/core"
)

// Handler adapts fetching and link handling to one hosting platform.
type Handler interface {
	// Name identifies the handler in logs.
	Name() string

	// CanHandle reports whether this handler owns the given URL.
	CanHandle(rawURL string) bool

	// URLCandidates returns the URLs to try fetching, in order. The
	// first entry is the preferred form of rawURL; later entries are
	// fallbacks for when earlier ones fail.
	URLCandidates(rawURL string) []string

	// ProcessLinks normalizes links extracted from a document fetched
	// from sourceURL. Handlers may rewrite link URLs and drop links that
	// do not point at content.
	ProcessLinks(links []core.Link, sourceURL string) []core.Link

	// Metadata derives host-specific metadata from a URL and the
	// document markdown fetched from it.
	Metadata(rawURL, markdown string) map[string]string
}

// Chain routes URLs to the first matching handler.
type Chain struct {
	handlers []Handler
	fallback Handler
}

// NewChain creates a chain over the given handlers with fallback used
// when none match.
func NewChain(fallback Handler, handlers ...Handler) *Chain {
	return &Chain{
		handlers: handlers,
		fallback: fallback,
	}
}

// DefaultChain creates a chain with the standard handlers registered.
func DefaultChain() *Chain {
	return NewChain(&FallbackHandler{}, &GitHubHandler{})
}

// HandlerFor returns the first handler that owns the URL, or the
// fallback when none do.
func (c *Chain) HandlerFor(rawURL string) Handler {
	for _, handler := range c.handlers {
		if handler.CanHandle(rawURL) {
			return handler
		}
	}
	return c.fallback
}

// FallbackHandler handles URLs no platform-specific handler claims.
type FallbackHandler struct{}

func (h *FallbackHandler) Name() string { return "fallback" }

func (h *FallbackHandler) CanHandle(rawURL string) bool { return true }

func (h *FallbackHandler) URLCandidates(rawURL string) []string {
	return []string{rawURL}
}

// ProcessLinks resolves relative links against the source URL and drops
// anything that is not an http(s) link.
func (h *FallbackHandler) ProcessLinks(links []core.Link, sourceURL string) []core.Link {
	out := make([]core.Link, 0, len(links))
	for _, link := range links {
		resolved, ok := resolveLink(link.URL, sourceURL)
		if !ok {
			continue
		}
		link.URL = resolved
		out = append(out, link)
	}
	return out
}

func (h *FallbackHandler) Metadata(rawURL, markdown string) map[string]string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	meta := make(map[string]string, 2)
	if parsed.Hostname() != "" {
		meta["host_domain"] = parsed.Hostname()
	}
	if parsed.Scheme != "" {
		meta["url_scheme"] = parsed.Scheme
	}
	return meta
}

// resolveLink resolves a possibly relative link against its source page
// and reports whether the result is a fetchable http(s) URL. Fragments
// and non-web schemes (mailto, javascript) are rejected.
func resolveLink(linkURL, sourceURL string) (string, bool) {
	trimmed := strings.TrimSpace(linkURL)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		if ref.IsAbs() {
			return ref.String(), true
		}
		return "", false
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}
