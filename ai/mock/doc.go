// Package mock provides test doubles for the ai interfaces.
//
// The mocks default to deterministic behavior (hash-based embeddings,
// keyword-scan tagging, truncation summaries) so tests need no external
// services, and expose function fields for injecting custom behavior.
package mock
