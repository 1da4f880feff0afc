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


package hosts

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/poiesic/corpus/core"
)

var (
	githubBlobRe = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/blob/(.+)$`)
	githubTreeRe = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/tree/(.+)$`)
	githubRepoRe = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)/?$`)
	githubRawRe  = regexp.MustCompile(`^https://raw\.githubusercontent\.com/([^/]+)/([^/]+)/(.+)$`)

	// Repo pages render their own star counts and license badges; the
	// converted markdown keeps phrases like "1.2k stars" and "MIT license".
	githubStarsRe   = regexp.MustCompile(`(?i)([\d][\d,.]*k?)\s+stars?\b`)
	githubLicenseRe = regexp.MustCompile(`(?i)\b(MIT|Apache[- ][\d.]+|GPL[- ]?v?[\d.]+|LGPL[- ]?v?[\d.]+|AGPL[- ]?v?[\d.]+|BSD[- ][23][- ]Clause|MPL[- ][\d.]+|ISC|Unlicense)\s+license\b`)
)

// Path segments under github.com/<user>/<repo>/ that never lead to
// ingestable content.
var githubNonContentSegments = map[string]bool{
	"issues":     true,
	"pulls":      true,
	"pull":       true,
	"commits":    true,
	"commit":     true,
	"actions":    true,
	"projects":   true,
	"stargazers": true,
	"forks":      true,
	"blame":      true,
	"compare":    true,
	"graphs":     true,
	"pulse":      true,
	"security":   true,
	"settings":   true,
}

// GitHubHandler rewrites github.com URLs to their raw content form so
// the fetcher receives file bytes instead of the repository web UI.
type GitHubHandler struct{}

var _ Handler = (*GitHubHandler)(nil)

func (h *GitHubHandler) Name() string { return "github" }

func (h *GitHubHandler) CanHandle(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	return host == "github.com" || host == "raw.githubusercontent.com"
}

// URLCandidates maps a GitHub URL to raw content URLs in preference
// order.
//
//   - blob URLs become the matching raw.githubusercontent.com URL
//   - tree URLs become the raw URL of the directory's README.md
//   - bare repository URLs become the README.md on main, then master
//   - raw directory URLs gain a README.md fallback
func (h *GitHubHandler) URLCandidates(rawURL string) []string {
	normalized := normalizeGitHubURL(rawURL)

	if m := githubBlobRe.FindStringSubmatch(normalized); m != nil {
		raw := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
		return []string{raw, normalized}
	}

	if m := githubTreeRe.FindStringSubmatch(normalized); m != nil {
		raw := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/README.md",
			m[1], m[2], strings.TrimSuffix(m[3], "/"))
		return []string{raw, normalized}
	}

	if m := githubRepoRe.FindStringSubmatch(normalized); m != nil {
		// Branch is unknown for a bare repository URL
		return []string{
			fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/main/README.md", m[1], m[2]),
			fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/master/README.md", m[1], m[2]),
			normalized,
		}
	}

	if m := githubRawRe.FindStringSubmatch(normalized); m != nil {
		if path.Ext(m[3]) == "" {
			// Likely a directory; try its README next
			return []string{normalized, strings.TrimSuffix(normalized, "/") + "/README.md"}
		}
	}

	return []string{normalized}
}

// ProcessLinks resolves extracted links, drops repository chrome such as
// issue and pull request pages, and rewrites blob links to raw form.
func (h *GitHubHandler) ProcessLinks(links []core.Link, sourceURL string) []core.Link {
	out := make([]core.Link, 0, len(links))
	for _, link := range links {
		resolved, ok := resolveLink(link.URL, sourceURL)
		if !ok {
			continue
		}
		resolved = normalizeGitHubURL(resolved)
		if isGitHubNonContent(resolved) {
			continue
		}
		if m := githubBlobRe.FindStringSubmatch(resolved); m != nil {
			resolved = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", m[1], m[2], m[3])
		}
		link.URL = resolved
		out = append(out, link)
	}
	return out
}

// Metadata extracts repository identity from the URL and, when present,
// star count and license mentions from the converted markdown.
func (h *GitHubHandler) Metadata(rawURL, markdown string) map[string]string {
	meta := make(map[string]string, 5)

	normalized := normalizeGitHubURL(rawURL)
	user, repo := githubRepoPath(normalized)
	if user != "" {
		meta["github_user"] = user
		meta["github_repo"] = repo
		meta["github_url"] = fmt.Sprintf("https://github.com/%s/%s", user, repo)
	}

	if m := githubStarsRe.FindStringSubmatch(markdown); m != nil {
		meta["github_stars"] = m[1]
	}
	if m := githubLicenseRe.FindStringSubmatch(markdown); m != nil {
		meta["github_license"] = m[1]
	}

	return meta
}

// normalizeGitHubURL lowercases the host and strips the www prefix so
// the path regexes match a single canonical form.
func normalizeGitHubURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host != "github.com" && host != "raw.githubusercontent.com" {
		return rawURL
	}
	parsed.Host = host
	parsed.Fragment = ""
	return parsed.String()
}

// githubRepoPath extracts the user and repository segments from a
// github.com or raw.githubusercontent.com URL.
func githubRepoPath(rawURL string) (user, repo string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", ""
	}
	return segments[0], segments[1]
}

// isGitHubNonContent reports whether a github.com URL points at
// repository chrome rather than content.
func isGitHubNonContent(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Hostname() != "github.com" {
		return false
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 3 {
		return false
	}
	return githubNonContentSegments[segments[2]]
}
