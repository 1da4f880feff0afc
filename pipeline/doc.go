// Package pipeline orchestrates document ingestion from raw content to
// persisted chunks.
//
// A run threads a ProcessingContext through eight ordered stages:
// enrichment, conversion, link extraction, summarization, chunking,
// embedding, classification, and finalization. The context's error list
// is checked after every stage and a fatal error halts the run before
// anything is written, so the store never holds a partial document.
//
// Conversion and embedding failures are fatal; link extraction,
// summarization, and classification degrade to warnings. Chunk
// embeddings are generated concurrently through a worker pool and
// joined by index before persistence. Persisting replaces any prior
// chunks for the same source URL inside one transaction, serialized by
// a per-source-URL lock.
package pipeline
