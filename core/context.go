package core

import (
	"fmt"
	"slices"
)

// ProcessingContext is the mutable working state for one pipeline run.
// It is owned exclusively by a single pipeline invocation and discarded
// after finalization; the Chunks built from it are what persist.
type ProcessingContext struct {
	Document *RawDocument

	// Derived state, filled in stage order.
	Markdown string
	Title    string
	Summary  string
	Chunks   []string
	Vectors  [][]float32 // parallel to Chunks, matched by index
	Links    []Link

	Tags     []string
	Metadata map[string]string

	Errors   []error
	Warnings []string
	Stages   []string // names of stages completed so far
}

// NewProcessingContext creates a context seeded from the raw document's
// title, summary, tags and source metadata.
func NewProcessingContext(doc *RawDocument) *ProcessingContext {
	ctx := &ProcessingContext{
		Document: doc,
		Title:    doc.Title,
		Summary:  doc.Summary,
		Metadata: make(map[string]string, len(doc.SourceMetadata)),
	}
	for k, v := range doc.SourceMetadata {
		ctx.Metadata[k] = v
	}
	ctx.AddTags(doc.Tags...)
	return ctx
}

// AddError records a fatal error. The pipeline halts after the current stage.
func (c *ProcessingContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// AddWarning records a non-fatal issue without halting the pipeline.
func (c *ProcessingContext) AddWarning(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// AddTags appends tags, skipping duplicates while preserving order.
func (c *ProcessingContext) AddTags(tags ...string) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if !slices.Contains(c.Tags, tag) {
			c.Tags = append(c.Tags, tag)
		}
	}
}

// SetMetadata sets a metadata value, overwriting any existing entry.
func (c *ProcessingContext) SetMetadata(key, value string) {
	c.Metadata[key] = value
}

// SetMetadataDefault sets a metadata value only if the key is not present.
// Used by the fallback enricher so it never clobbers earlier enrichers.
func (c *ProcessingContext) SetMetadataDefault(key, value string) {
	if _, ok := c.Metadata[key]; !ok {
		c.Metadata[key] = value
	}
}

// CompleteStage appends a stage name to the completed list.
func (c *ProcessingContext) CompleteStage(name string) {
	c.Stages = append(c.Stages, name)
}

// Failed reports whether any stage recorded a fatal error.
func (c *ProcessingContext) Failed() bool {
	return len(c.Errors) > 0
}
