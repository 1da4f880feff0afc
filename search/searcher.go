package search

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// Default similarity floor for semantic matches.
const defaultMinSimilarity = 0.60

// Searcher provides embedding search over persisted document chunks.
type Searcher struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	chunkRepository storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunks:   chunkRepository,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Options holds optional search parameters.
type Options struct {
	// Tags restricts results to chunks carrying every listed tag.
	Tags []string

	// MinSimilarity overrides the default similarity floor of 0.60.
	MinSimilarity float32
}

// Search finds chunks relevant to the query, ranked by relevance score.
// Returns up to maxHits results.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int, opts *Options) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, opts, nil)
}

// SearchWithMonitor searches with observation hooks at each stage.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, opts *Options, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts == nil {
		opts = &Options{}
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if maxHits < 1 {
		maxHits = 10
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	monitor.Start(query, opts.Tags)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// Over-fetch when a tag filter will discard candidates afterwards
	fetchLimit := maxHits
	if len(opts.Tags) > 0 {
		fetchLimit = maxHits * 4
	}

	matches, err := s.chunks.FindSimilar(ctx, embedding, minSimilarity, fetchLimit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, uint64(match.Chunk.Id))
	}
	monitor.AfterSemanticSearch(ids)

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		if !hasAllTags(match.Chunk, opts.Tags) {
			monitor.TagFiltered(match.Chunk)
			continue
		}

		score := match.Score
		if containsAllQueryWords(match.Chunk.Content, query) {
			score += 0.3
			monitor.VerbatimBoost(match.Chunk)
		}

		results = append(results, &core.SearchResult{
			Chunk: match.Chunk,
			Score: score,
		})
	}

	// Verbatim boosts can reorder the similarity ranking
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// hasAllTags reports whether the chunk carries every required tag.
func hasAllTags(chunk *core.Chunk, required []string) bool {
	for _, tag := range required {
		if !slices.Contains(chunk.Tags, tag) {
			return false
		}
	}
	return true
}
