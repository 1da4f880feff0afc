package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier assigns topic tags to document text.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// ClassifyTags analyzes text and returns the tags from the known
	// taxonomy that apply to it. Tags outside the taxonomy are dropped.
	// Returns an empty slice if no known tag applies.
	// Returns an error if classification fails.
	ClassifyTags(ctx context.Context, text string) ([]string, error)
}

// Summarizer produces short summaries of document text.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize produces a summary of the text no longer than maxChars
	// characters. Returns an error if summarization fails.
	Summarize(ctx context.Context, text string, maxChars int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, Classifier, and Summarizer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the tag classification service.
	// The returned Classifier is safe for concurrent use.
	Classifier() Classifier

	// Summarizer returns the summarization service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
