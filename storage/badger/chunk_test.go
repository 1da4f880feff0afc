package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

func makeTestChunks(sourceURL string, ingestedAt time.Time, contents ...string) []*core.Chunk {
	docID := core.NewDocumentID(sourceURL, ingestedAt)
	chunks := make([]*core.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &core.Chunk{
			Id:          core.NewChunkID(docID, i),
			DocumentId:  docID,
			Title:       "Test Document",
			SourceURL:   sourceURL,
			Content:     content,
			ChunkIndex:  i,
			TotalChunks: len(contents),
			CreatedAt:   ingestedAt,
		}
	}
	return chunks
}

func TestChunkBasics(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunks := makeTestChunks("https://example.com/doc", time.Now().UTC(), "First chunk", "Second chunk")

	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	if chunks[0].IndexedAt.IsZero() {
		t.Fatal("Expected IndexedAt to be set on add")
	}

	retrieved, err := chunkRepo.GetChunk(ctx, chunks[0].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.Content != "First chunk" {
		t.Fatalf("Expected 'First chunk', got '%s'", retrieved.Content)
	}

	count, err := chunkRepo.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 chunks, got %d", count)
	}
}

func TestGetChunkNotFound(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	_, err = chunkRepo.GetChunk(context.Background(), core.ID(12345))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetChunksByDocumentOrder(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunks := makeTestChunks("https://example.com/doc", time.Now().UTC(), "c0", "c1", "c2", "c3")
	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	results, err := chunkRepo.GetChunksByDocument(ctx, chunks[0].DocumentId)
	if err != nil {
		t.Fatalf("Failed to get chunks by document: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(results))
	}
	for i, chunk := range results {
		if chunk.ChunkIndex != i {
			t.Fatalf("Expected chunk index %d at position %d, got %d", i, i, chunk.ChunkIndex)
		}
	}
}

func TestGetChunksBySourceURL(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	first := makeTestChunks("https://example.com/a", now, "a0", "a1")
	second := makeTestChunks("https://example.com/b", now, "b0")

	if err := chunkRepo.AddChunks(ctx, append(first, second...)...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	results, err := chunkRepo.GetChunksBySourceURL(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("Failed to get chunks by source URL: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(results))
	}
	if results[0].ChunkIndex != 0 || results[1].ChunkIndex != 1 {
		t.Fatalf("Expected chunks ordered by index, got %d, %d", results[0].ChunkIndex, results[1].ChunkIndex)
	}
}

func TestReplaceDocument(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	sourceURL := "https://example.com/doc"

	old := makeTestChunks(sourceURL, time.Now().UTC().Add(-time.Hour), "old 0", "old 1", "old 2")
	if err := chunkRepo.AddChunks(ctx, old...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	replacement := makeTestChunks(sourceURL, time.Now().UTC(), "new 0", "new 1")
	if err := chunkRepo.ReplaceDocument(ctx, sourceURL, replacement); err != nil {
		t.Fatalf("Failed to replace document: %v", err)
	}

	results, err := chunkRepo.GetChunksBySourceURL(ctx, sourceURL)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 chunks after replace, got %d", len(results))
	}
	if results[0].Content != "new 0" {
		t.Fatalf("Expected replacement content, got '%s'", results[0].Content)
	}

	// Old chunks must be gone entirely
	if _, err := chunkRepo.GetChunk(ctx, old[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected old chunk to be deleted, got %v", err)
	}
	count, err := chunkRepo.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 chunks total, got %d", count)
	}
}

func TestDeleteDocument(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	keep := makeTestChunks("https://example.com/keep", now, "kept")
	doomed := makeTestChunks("https://example.com/doomed", now, "d0", "d1", "d2")

	if err := chunkRepo.AddChunks(ctx, append(keep, doomed...)...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	removed, err := chunkRepo.DeleteDocument(ctx, doomed[0].DocumentId)
	if err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}
	if removed != 3 {
		t.Fatalf("Expected 3 chunks removed, got %d", removed)
	}

	count, err := chunkRepo.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 chunk remaining, got %d", count)
	}
}

func TestDeleteBySourceURL(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunks := makeTestChunks("https://example.com/doc", time.Now().UTC(), "c0", "c1")
	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	removed, err := chunkRepo.DeleteBySourceURL(ctx, "https://example.com/doc")
	if err != nil {
		t.Fatalf("Failed to delete by source URL: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Expected 2 chunks removed, got %d", removed)
	}

	// Deleting again removes nothing
	removed, err = chunkRepo.DeleteBySourceURL(ctx, "https://example.com/doc")
	if err != nil {
		t.Fatalf("Failed second delete: %v", err)
	}
	if removed != 0 {
		t.Fatalf("Expected 0 chunks removed, got %d", removed)
	}
}

func TestChunkTagIndex(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	chunks := makeTestChunks("https://example.com/doc", now, "c0", "c1")
	chunks[0].Tags = []string{"Semantic Kernel", "AutoGen"}
	chunks[1].Tags = []string{"Semantic Kernel"}

	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	ids, err := chunkRepo.GetChunksByTag(ctx, "Semantic Kernel")
	if err != nil {
		t.Fatalf("Failed to get chunks by tag: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 chunks tagged, got %d", len(ids))
	}

	ids, err = chunkRepo.GetChunksByTag(ctx, "AutoGen")
	if err != nil {
		t.Fatalf("Failed to get chunks by tag: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected 1 chunk tagged, got %d", len(ids))
	}

	// Deleting the document must clean the tag index
	if _, err := chunkRepo.DeleteDocument(ctx, chunks[0].DocumentId); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}
	ids, err = chunkRepo.GetChunksByTag(ctx, "Semantic Kernel")
	if err != nil {
		t.Fatalf("Failed to get chunks by tag: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected tag index to be empty, got %d entries", len(ids))
	}
}

func TestUpdateChunks(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunks := makeTestChunks("https://example.com/doc", time.Now().UTC(), "original")
	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	chunks[0].Vector = []float32{0.5, 0.5}
	chunks[0].Tags = []string{"ML.NET"}
	if err := chunkRepo.UpdateChunks(ctx, chunks[0]); err != nil {
		t.Fatalf("Failed to update chunk: %v", err)
	}

	retrieved, err := chunkRepo.GetChunk(ctx, chunks[0].Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if len(retrieved.Vector) != 2 {
		t.Fatalf("Expected updated vector, got %v", retrieved.Vector)
	}

	ids, err := chunkRepo.GetChunksByTag(ctx, "ML.NET")
	if err != nil {
		t.Fatalf("Failed to get chunks by tag: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Expected tag index entry after update, got %d", len(ids))
	}

	// Updating a missing chunk fails
	missing := makeTestChunks("https://example.com/other", time.Now().UTC(), "x")
	if err := chunkRepo.UpdateChunks(ctx, missing[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestChunkDateRange(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	chunks := makeTestChunks("https://example.com/doc", now, "c0", "c1", "c2")
	chunks[0].IndexedAt = now.Add(-2 * time.Hour)
	chunks[1].IndexedAt = now.Add(-1 * time.Hour)
	chunks[2].IndexedAt = now

	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	results, err := chunkRepo.GetChunksByDateRange(ctx, now.Add(-90*time.Minute), now)
	if err != nil {
		t.Fatalf("Failed to get chunks by date range: %v", err)
	}
	// End is exclusive, so the chunk indexed exactly at now is excluded
	if len(results) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(results))
	}
	if results[0].Content != "c1" {
		t.Fatalf("Expected 'c1', got '%s'", results[0].Content)
	}
}

func TestGetRecentChunks(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	chunks := makeTestChunks("https://example.com/doc", now, "c0", "c1", "c2", "c3")
	for i, chunk := range chunks {
		chunk.IndexedAt = now.Add(time.Duration(i-3) * time.Hour)
	}

	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	results, err := chunkRepo.GetRecentChunks(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get recent chunks: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(results))
	}
	if results[0].Content != "c3" || results[1].Content != "c2" {
		t.Fatalf("Expected most recent first, got '%s', '%s'", results[0].Content, results[1].Content)
	}
}

func TestFindSimilarChunks(t *testing.T) {
	chunkRepo, feedRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { feedRepo.Close(); chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunks := makeTestChunks("https://example.com/doc", time.Now().UTC(), "close", "far", "unembedded")
	chunks[0].Vector = []float32{1, 0, 0}
	chunks[1].Vector = []float32{0, 1, 0}
	// chunks[2] has no vector and must be skipped

	if err := chunkRepo.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	results, err := chunkRepo.FindSimilar(ctx, []float32{0.9, 0.1, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("Failed to find similar: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.Content != "close" {
		t.Fatalf("Expected 'close', got '%s'", results[0].Chunk.Content)
	}
}
