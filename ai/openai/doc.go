// Package openai provides OpenAI-compatible implementations of the ai interfaces.
//
// This package works with any OpenAI-compatible API endpoint, including:
//
//   - Ollama (http://localhost:11434/v1)
//   - LocalAI
//   - vLLM
//   - OpenAI itself
//
// # Components
//
//   - Embedder: Text embeddings via the embeddings API
//   - Classifier: Taxonomy tag assignment via chat completions with JSON mode
//   - Summarizer: Short document summaries via chat completions
//   - Provider: Aggregates all three over shared configuration
//
// # Authentication
//
// Local OpenAI-compatible services typically don't require authentication,
// so the client is configured with a placeholder token. For hosted services
// requiring real credentials, set the appropriate environment variables
// recognized by the underlying client.
//
// # Robustness
//
// Small local models produce imperfect JSON. The classifier strips markdown
// code fences, repairs common JSON defects, and retries parsing up to three
// times before giving up.
package openai
