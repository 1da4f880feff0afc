package core

import (
	"slices"
	"strings"
)

// KnownTags is the closed set of category tags the classifier may assign.
// Classifier output is validated against this set; unknown strings are
// discarded rather than stored.
var KnownTags = []string{
	"Microsoft.Extensions.AI",
	"ML.NET",
	"AutoGen",
	"Semantic Kernel",
	"Semantic Kernel Agents",
	"Semantic Kernel Process Framework",
	"OpenAI SDK",
	"Azure AI Services",
	"Microsoft Agent Framework",
}

// TagParents maps a tag to the parent tag implied by its family.
// When a child tag is assigned, the parent is added automatically even if
// the classifier omitted it.
var TagParents = map[string]string{
	"Semantic Kernel Agents":            "Semantic Kernel",
	"Semantic Kernel Process Framework": "Semantic Kernel",
}

// tagKeywords drives the keyword fallback used when the classifier degrades.
var tagKeywords = map[string][]string{
	"Microsoft.Extensions.AI":           {"microsoft.extensions.ai", "ichatclient", "iembeddinggenerator"},
	"ML.NET":                            {"ml.net", "mlcontext", "mldotnet"},
	"AutoGen":                           {"autogen"},
	"Semantic Kernel":                   {"semantic kernel", "semantickernel"},
	"Semantic Kernel Agents":            {"semantic kernel agent", "agentchat", "chatcompletionagent"},
	"Semantic Kernel Process Framework": {"process framework", "kernelprocess"},
	"OpenAI SDK":                        {"openai sdk", "openai .net", "chatgpt api"},
	"Azure AI Services":                 {"azure ai", "azure openai", "cognitive services"},
	"Microsoft Agent Framework":         {"agent framework", "microsoft.agents"},
}

// IsKnownTag reports whether a tag belongs to the closed registry.
func IsKnownTag(tag string) bool {
	return slices.Contains(KnownTags, tag)
}

// ValidateTags splits classifier output into known and unknown tags,
// preserving order and dropping duplicates.
func ValidateTags(tags []string) (known, unknown []string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if IsKnownTag(tag) {
			if !slices.Contains(known, tag) {
				known = append(known, tag)
			}
		} else if !slices.Contains(unknown, tag) {
			unknown = append(unknown, tag)
		}
	}
	return known, unknown
}

// WithImpliedParents returns the tag set extended with the parent tag of
// every family member present. Order is preserved; parents are appended.
func WithImpliedParents(tags []string) []string {
	result := slices.Clone(tags)
	for _, tag := range tags {
		parent, ok := TagParents[tag]
		if ok && !slices.Contains(result, parent) {
			result = append(result, parent)
		}
	}
	return result
}

// SuggestTags performs a keyword scan over text and returns the known tags
// whose keywords appear. Used as a degraded-mode fallback when the
// classifier is unavailable.
func SuggestTags(text string) []string {
	lowered := strings.ToLower(text)
	var tags []string
	for _, tag := range KnownTags {
		for _, kw := range tagKeywords[tag] {
			if strings.Contains(lowered, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return WithImpliedParents(tags)
}
