// Package reembed regenerates embeddings for stored document chunks after
// an embedding model change.
//
// Chunks are processed in batches in IndexedAt order, with progress
// reporting, retry with exponential backoff, checkpoint-based resume, and
// vector normalization so stored vectors stay compatible with cosine
// similarity search.
package reembed
