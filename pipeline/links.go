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


package pipeline

import (
	"regexp"
	"strings"

	"github.com/poiesic/corpus/core"
)

// Matches markdown links including the optional leading bang of an
// image reference, so images can be told apart and skipped.
var markdownLinkRe = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)]+)\)`)

// extractLinks pulls hyperlinks out of markdown content. Image
// references are skipped; optional link titles after the URL are
// discarded.
func extractLinks(markdown string) []core.Link {
	matches := markdownLinkRe.FindAllStringSubmatch(markdown, -1)
	links := make([]core.Link, 0, len(matches))
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		if m[1] == "!" {
			continue
		}
		fields := strings.Fields(m[3])
		if len(fields) == 0 {
			continue
		}
		target := fields[0]
		if seen[target] {
			continue
		}
		seen[target] = true

		links = append(links, core.Link{
			URL:  target,
			Text: strings.TrimSpace(m[2]),
			Hint: classifyLink(target),
		})
	}

	return links
}

// classifyLink derives a coarse hint from the link target itself.
func classifyLink(target string) string {
	lower := strings.ToLower(target)
	switch {
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"),
		strings.Contains(lower, "/docs/"), strings.Contains(lower, "readme"):
		return "documentation"
	case strings.Contains(lower, "github.com"), strings.Contains(lower, "raw.githubusercontent.com"),
		strings.Contains(lower, "gitlab.com"):
		return "code"
	default:
		return ""
	}
}
