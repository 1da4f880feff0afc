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
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/chunker"
	"github.com/poiesic/corpus/convert"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/enrich"
	"github.com/poiesic/corpus/hosts"
	"github.com/poiesic/corpus/storage"
)

const defaultSummaryBudget = 300

// Pipeline orchestrates document processing from raw content to
// persisted chunks. Stages run strictly in order; a fatal error in any
// stage halts the run before persistence so partial output is never
// written.
type Pipeline struct {
	chunks          storage.ChunkRepository
	provider        ai.AIProvider
	converter       *convert.Converter
	enrichers       *enrich.Chain
	hosts           *hosts.Chain
	embedPool       *ants.Pool
	locks           *keyedMutex
	chunkSize       int
	summaryBudget   int
	providerTimeout time.Duration
	dryRun          bool
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent chunk embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.embedPool != nil {
			p.embedPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embedPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithChunkSize sets the maximum chunk size in characters.
// Default is chunker.DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.chunkSize = size
		}
		return nil
	}
}

// WithSummaryBudget sets the summary character budget.
// Default is 300.
func WithSummaryBudget(budget int) Option {
	return func(p *Pipeline) error {
		if budget > 0 {
			p.summaryBudget = budget
		}
		return nil
	}
}

// WithProviderTimeout bounds each individual AI provider call.
// Default is 60 seconds.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout > 0 {
			p.providerTimeout = timeout
		}
		return nil
	}
}

// WithDryRun makes runs log every stage but skip persistence. Callers
// wanting a fully side-effect-free run pair this with a mock provider.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) error {
		p.dryRun = dryRun
		return nil
	}
}

// WithEnrichers replaces the default source enricher chain.
func WithEnrichers(chain *enrich.Chain) Option {
	return func(p *Pipeline) error {
		if chain != nil {
			p.enrichers = chain
		}
		return nil
	}
}

// WithHostHandlers replaces the default host handler chain.
func WithHostHandlers(chain *hosts.Chain) Option {
	return func(p *Pipeline) error {
		if chain != nil {
			p.hosts = chain
		}
		return nil
	}
}

// NewPipeline creates a document pipeline.
func NewPipeline(
	chunkRepository storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:          chunkRepository,
		provider:        provider,
		converter:       convert.NewConverter(),
		enrichers:       enrich.DefaultChain(),
		hosts:           hosts.DefaultChain(),
		embedPool:       pool,
		locks:           newKeyedMutex(),
		chunkSize:       chunker.DefaultChunkSize,
		summaryBudget:   defaultSummaryBudget,
		providerTimeout: 60 * time.Second,
		logger:          slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// ProcessOptions holds optional per-run parameters.
type ProcessOptions struct {
	// ExtraTags are applied to the document in addition to enricher and
	// classifier tags.
	ExtraTags []string

	// SkipClassification disables the AI categorization stage.
	SkipClassification bool
}

// Result is the outcome of one successful pipeline run.
type Result struct {
	DocumentID core.ID
	Chunks     []*core.Chunk
	Links      []core.Link
	Title      string
	Summary    string
	Tags       []string
	Warnings   []string
	Stages     []string
	Persisted  bool
}

type stage struct {
	name string
	fn   func(context.Context, *core.ProcessingContext)
}

// Process runs a raw document through every stage and persists the
// resulting chunks. Re-processing a source URL replaces its previous
// chunks; the delete and insert happen in one transaction under a
// per-source-URL lock.
func (p *Pipeline) Process(ctx context.Context, doc *core.RawDocument, opts *ProcessOptions) (*Result, error) {
	if opts == nil {
		opts = &ProcessOptions{}
	}

	if err := core.ValidateRawDocument(doc); err != nil {
		return nil, err
	}

	pctx := core.NewProcessingContext(doc)
	pctx.AddTags(opts.ExtraTags...)

	stages := []stage{
		{"enrichment", p.stageEnrich},
		{"conversion", p.stageConvert},
		{"link_extraction", p.stageLinks},
		{"summarization", p.stageSummarize},
		{"chunking", p.stageChunk},
		{"embedding", p.stageEmbed},
	}
	if !opts.SkipClassification {
		stages = append(stages, stage{"classification", p.stageClassify})
	}

	for _, s := range stages {
		p.logger.Debug("stage starting", "stage", s.name, "url", doc.SourceURL)
		s.fn(ctx, pctx)
		pctx.CompleteStage(s.name)

		if pctx.Failed() {
			p.logger.Error("stage failed",
				"stage", s.name, "url", doc.SourceURL, "errors", len(pctx.Errors))
			return nil, &StageError{Stage: s.name, Errs: pctx.Errors}
		}
		p.logger.Debug("stage complete", "stage", s.name, "url", doc.SourceURL)
	}

	result, err := p.finalize(ctx, pctx)
	if err != nil {
		return nil, err
	}
	pctx.CompleteStage("finalization")
	result.Stages = pctx.Stages

	p.logger.Info("document processed",
		"url", doc.SourceURL,
		"document_id", result.DocumentID,
		"chunks", len(result.Chunks),
		"links", len(result.Links),
		"tags", len(result.Tags),
		"persisted", result.Persisted)

	return result, nil
}

// Delete removes every chunk sharing the document identity.
func (p *Pipeline) Delete(ctx context.Context, documentID core.ID) (int, error) {
	chunks, err := p.chunks.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStorage, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	unlock := p.locks.lock(chunks[0].SourceURL)
	defer unlock()

	removed, err := p.chunks.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStorage, err)
	}
	return removed, nil
}

// DeleteBySourceURL removes every chunk for a source URL.
func (p *Pipeline) DeleteBySourceURL(ctx context.Context, sourceURL string) (int, error) {
	unlock := p.locks.lock(sourceURL)
	defer unlock()

	removed, err := p.chunks.DeleteBySourceURL(ctx, sourceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrStorage, err)
	}
	return removed, nil
}

// Release releases the embedding worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embedPool != nil {
		p.embedPool.Release()
	}
}

func (p *Pipeline) stageEnrich(ctx context.Context, pctx *core.ProcessingContext) {
	p.enrichers.Apply(pctx)
}

func (p *Pipeline) stageConvert(ctx context.Context, pctx *core.ProcessingContext) {
	doc := pctx.Document

	switch doc.ContentType {
	case core.ContentTypeMarkdown, core.ContentTypeText:
		pctx.Markdown = doc.Content
		if pctx.Title == "" {
			pctx.Title = convert.ExtractMarkdownTitle(doc.Content)
		}
		return
	}

	// Feed item bodies and blog posts carry article HTML where only the
	// body matters; everything else gets main-content extraction.
	var result *convert.Result
	var err error
	switch pctx.Metadata["source_type"] {
	case "rss", "wordpress":
		result, err = p.converter.ConvertArticle([]byte(doc.Content), doc.SourceURL)
	default:
		result, err = p.converter.Convert([]byte(doc.Content))
	}
	if err != nil {
		pctx.AddError(err)
		return
	}

	pctx.Markdown = result.Markdown
	if pctx.Title == "" {
		pctx.Title = result.Title
	}
}

func (p *Pipeline) stageLinks(ctx context.Context, pctx *core.ProcessingContext) {
	doc := pctx.Document
	handler := p.hosts.HandlerFor(doc.SourceURL)

	links := extractLinks(pctx.Markdown)
	pctx.Links = handler.ProcessLinks(links, doc.SourceURL)

	for key, value := range handler.Metadata(doc.SourceURL, pctx.Markdown) {
		pctx.SetMetadataDefault(key, value)
	}
}

func (p *Pipeline) stageSummarize(ctx context.Context, pctx *core.ProcessingContext) {
	if pctx.Summary != "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	summary, err := p.provider.Summarizer().Summarize(callCtx, pctx.Markdown, p.summaryBudget)
	if err != nil {
		pctx.AddWarning("summarization failed: %v", err)
		return
	}
	pctx.Summary = summary
}

func (p *Pipeline) stageChunk(ctx context.Context, pctx *core.ProcessingContext) {
	pctx.Chunks = chunker.Chunk(pctx.Markdown, p.chunkSize)
	if len(pctx.Chunks) == 0 {
		pctx.AddError(fmt.Errorf("%w: document has no chunkable content", core.ErrConversion))
		return
	}

	// Atomic sections (code blocks, tables) larger than the budget come
	// back as single oversized chunks rather than being split mid-block.
	for i, chunk := range pctx.Chunks {
		if len(chunk) > p.chunkSize {
			pctx.AddWarning("chunk %d exceeds size budget (%d > %d chars)", i, len(chunk), p.chunkSize)
		}
	}
}

// stageEmbed embeds every chunk concurrently through the worker pool.
// Chunk indexes are assigned before dispatch and results are matched
// back by index, so completion order never reorders vectors.
func (p *Pipeline) stageEmbed(ctx context.Context, pctx *core.ProcessingContext) {
	embedder := p.provider.Embedder()
	vectors := make([][]float32, len(pctx.Chunks))
	errs := make([]error, len(pctx.Chunks))

	var wg sync.WaitGroup
	for i, text := range pctx.Chunks {
		wg.Add(1)
		submitErr := p.embedPool.Submit(func() {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
			defer cancel()

			vectors[i], errs[i] = embedder.EmbedText(callCtx, text)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			pctx.AddError(fmt.Errorf("%w: embed chunk %d: %w", core.ErrProvider, i, err))
		}
	}
	if pctx.Failed() {
		return
	}

	pctx.Vectors = vectors
}

func (p *Pipeline) stageClassify(ctx context.Context, pctx *core.ProcessingContext) {
	callCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	tags, err := p.provider.Classifier().ClassifyTags(callCtx, pctx.Markdown)
	if err != nil {
		pctx.AddWarning("classification failed: %v", err)
		return
	}

	// The taxonomy rule holds regardless of classifier implementation:
	// unknown tags are dropped and family parents are implied.
	known, unknown := core.ValidateTags(tags)
	if len(unknown) > 0 {
		p.logger.Debug("dropping tags outside taxonomy", "tags", unknown)
	}
	pctx.AddTags(core.WithImpliedParents(known)...)
}

// finalize builds the chunk batch under one freshly minted document
// identity and persists it, replacing any prior chunks for the same
// source URL.
func (p *Pipeline) finalize(ctx context.Context, pctx *core.ProcessingContext) (*Result, error) {
	doc := pctx.Document
	now := time.Now()
	documentID := core.NewDocumentID(doc.SourceURL, now)

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	metadata := make(map[string]string, len(pctx.Metadata)+1)
	for k, v := range pctx.Metadata {
		metadata[k] = v
	}
	if pctx.Summary != "" {
		metadata["summary"] = pctx.Summary
	}

	chunks := make([]*core.Chunk, len(pctx.Chunks))
	for i, content := range pctx.Chunks {
		chunks[i] = &core.Chunk{
			Id:          core.NewChunkID(documentID, i),
			DocumentId:  documentID,
			Title:       pctx.Title,
			SourceURL:   doc.SourceURL,
			Content:     content,
			Vector:      pctx.Vectors[i],
			Tags:        pctx.Tags,
			ChunkIndex:  i,
			TotalChunks: len(pctx.Chunks),
			IndexedAt:   now,
			CreatedAt:   createdAt,
			Metadata:    metadata,
		}
	}

	result := &Result{
		DocumentID: documentID,
		Chunks:     chunks,
		Links:      pctx.Links,
		Title:      pctx.Title,
		Summary:    pctx.Summary,
		Tags:       pctx.Tags,
		Warnings:   pctx.Warnings,
	}

	if p.dryRun {
		p.logger.Info("dry run, skipping persistence",
			"url", doc.SourceURL, "chunks", len(chunks))
		return result, nil
	}

	unlock := p.locks.lock(doc.SourceURL)
	defer unlock()

	if err := p.chunks.ReplaceDocument(ctx, doc.SourceURL, chunks); err != nil {
		return nil, &StageError{
			Stage: "finalization",
			Errs:  []error{fmt.Errorf("%w: persist chunks: %w", core.ErrStorage, err)},
		}
	}
	result.Persisted = true

	return result, nil
}
