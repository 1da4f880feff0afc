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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	corpus "github.com/poiesic/corpus"
	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/feeds"
	"github.com/poiesic/corpus/fetch"
	"github.com/poiesic/corpus/pipeline"
	"github.com/poiesic/corpus/reembed"
	"github.com/poiesic/corpus/search"
)

func main() {
	app := &cli.App{
		Name:  "corpus",
		Usage: "Document ingestion and semantic search over web content and feeds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./corpus_db",
			},
			&cli.StringFlag{
				Name:  "ai-host",
				Usage: "OpenAI-compatible service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "classifier-model",
				Usage: "Classification and summarization model name",
				Value: "qwen2.5:3b",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Fetch a URL and ingest it",
				ArgsUsage: "<url>",
				Action:    addCommand,
				Flags:     ingestFlags(),
			},
			{
				Name:      "update",
				Usage:     "Re-fetch a URL, replacing its stored chunks",
				ArgsUsage: "<url>",
				Action:    addCommand,
				Flags:     ingestFlags(),
			},
			{
				Name:      "delete",
				Usage:     "Remove every chunk stored for a URL",
				ArgsUsage: "<url>",
				Action:    deleteCommand,
			},
			{
				Name:      "search",
				Usage:     "Search ingested chunks",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:    "tags",
						Aliases: []string{"t"},
						Usage:   "Only return chunks carrying every listed tag",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Similarity floor for semantic matches",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List recently ingested documents",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of chunks to scan",
						Value: 100,
					},
				},
			},
			{
				Name:      "add-subscription",
				Usage:     "Subscribe to an RSS or Atom feed",
				ArgsUsage: "<feed-url>",
				Action:    addSubscriptionCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name for the subscription",
					},
					&cli.StringSliceFlag{
						Name:    "tags",
						Aliases: []string{"t"},
						Usage:   "Tags applied to every item the feed produces",
					},
				},
			},
			{
				Name:   "list-subscriptions",
				Usage:  "List feed subscriptions",
				Action: listSubscriptionsCommand,
			},
			{
				Name:   "check-feeds",
				Usage:  "Poll every enabled subscription once",
				Action: checkFeedsCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "auto-ingest",
						Usage: "Ingest new items immediately instead of queueing them for approval",
					},
				},
			},
			{
				Name:   "list-pending",
				Usage:  "List feed items queued for approval",
				Action: listPendingCommand,
			},
			{
				Name:      "approve",
				Usage:     "Ingest queued feed items",
				ArgsUsage: "<item-id...>",
				Action:    approveCommand,
				Flags:     approvalFlags(),
			},
			{
				Name:      "reject",
				Usage:     "Discard queued feed items without ingesting them",
				ArgsUsage: "<item-id...>",
				Action:    rejectCommand,
				Flags:     approvalFlags(),
			},
			{
				Name:   "cleanup",
				Usage:  "Remove old processed-item markers",
				Action: cleanupCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "older-than-days",
						Usage: "Remove markers processed more than this many days ago",
						Value: 90,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with new embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue from the last saved checkpoint",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print store counts",
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "Extra tags applied to the document",
		},
		&cli.BoolFlag{
			Name:  "no-ai-categorization",
			Usage: "Skip the AI tag classification stage",
		},
		&cli.BoolFlag{
			Name:  "what-if",
			Usage: "Run the pipeline without AI calls or persistence and report what would happen",
		},
		&cli.BoolFlag{
			Name:  "crawl-links",
			Usage: "Also ingest the links extracted from the document, one level deep",
		},
	}
}

func approvalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Apply to every pending item",
		},
	}
}

// openDatabase builds the Database handle from the global flags. A dry run
// swaps the AI provider for a mock so no model calls are made.
func openDatabase(c *cli.Context, dryRun bool) (*corpus.Database, error) {
	if dryRun {
		return corpus.NewDatabase(c.String("db"), corpus.WithProvider(mock.NewMockProvider()))
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithClassifierModel(c.String("classifier-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return corpus.NewDatabase(c.String("db"), corpus.WithAIConfig(aiConfig))
}

func addCommand(c *cli.Context) error {
	ctx := context.Background()

	rawURL := c.Args().First()
	if rawURL == "" {
		return fmt.Errorf("a URL argument is required")
	}

	whatIf := c.Bool("what-if")

	db, err := openDatabase(c, whatIf)
	if err != nil {
		return err
	}
	defer db.Close()

	var pipeOpts []pipeline.Option
	if whatIf {
		pipeOpts = append(pipeOpts, pipeline.WithDryRun(true))
	}

	pipe, err := db.NewPipeline(pipeOpts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	retriever := db.NewRetriever()

	opts := &pipeline.ProcessOptions{
		ExtraTags:          c.StringSlice("tags"),
		SkipClassification: c.Bool("no-ai-categorization"),
	}

	result, err := ingestURL(ctx, retriever, pipe, rawURL, opts)
	if err != nil {
		return err
	}
	printResult(result, whatIf)

	if c.Bool("crawl-links") {
		crawlLinks(ctx, retriever, pipe, result.Links, opts)
	}

	return nil
}

func ingestURL(ctx context.Context, retriever *fetch.Retriever, pipe *pipeline.Pipeline, rawURL string, opts *pipeline.ProcessOptions) (*pipeline.Result, error) {
	doc, err := retriever.Retrieve(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	result, err := pipe.Process(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", rawURL, err)
	}
	return result, nil
}

// crawlLinks ingests the extracted links one level deep. Failures are
// reported and skipped so a dead link never aborts the crawl.
func crawlLinks(ctx context.Context, retriever *fetch.Retriever, pipe *pipeline.Pipeline, links []core.Link, opts *pipeline.ProcessOptions) {
	if len(links) == 0 {
		return
	}

	fmt.Printf("\nCrawling %d extracted links\n", len(links))
	for _, link := range links {
		result, err := ingestURL(ctx, retriever, pipe, link.URL, opts)
		if err != nil {
			fmt.Printf("  skipped %s: %v\n", link.URL, err)
			continue
		}
		fmt.Printf("  ingested %s (%d chunks)\n", link.URL, len(result.Chunks))
	}
}

func printResult(result *pipeline.Result, whatIf bool) {
	if whatIf {
		fmt.Println("Dry run: nothing was persisted")
	}
	fmt.Printf("Document: %d\n", result.DocumentID)
	fmt.Printf("Title:    %s\n", result.Title)
	fmt.Printf("Chunks:   %d\n", len(result.Chunks))
	if len(result.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(result.Tags, ", "))
	}
	if result.Summary != "" {
		fmt.Printf("Summary:  %s\n", result.Summary)
	}
	if len(result.Links) > 0 {
		fmt.Printf("Links:    %d extracted\n", len(result.Links))
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning:  %s\n", warning)
	}
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	rawURL := c.Args().First()
	if rawURL == "" {
		return fmt.Errorf("a URL argument is required")
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	removed, err := pipe.DeleteBySourceURL(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", rawURL, err)
	}

	fmt.Printf("Removed %d chunks for %s\n", removed, rawURL)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query argument is required")
	}

	db, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	opts := &search.Options{
		Tags:          c.StringSlice("tags"),
		MinSimilarity: float32(c.Float64("min-similarity")),
	}

	results, err := searcher.Search(ctx, query, c.Int("max-hits"), opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		chunk := hit.Chunk
		fmt.Printf("%d: %s [%0.3f]\n", i+1, chunk.Title, hit.Score)
		fmt.Printf("   %s (chunk %d/%d)\n", chunk.SourceURL, chunk.ChunkIndex+1, chunk.TotalChunks)
		fmt.Printf("   %s\n", snippet(chunk.Content, 120))
	}
	return nil
}

// snippet returns the first n runes of text on a single line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	chunks, err := db.ChunkRepository().GetRecentChunks(ctx, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	// Group chunks into documents, keeping most-recent-first order.
	type docEntry struct {
		title     string
		sourceURL string
		chunks    int
		indexedAt time.Time
	}
	var order []core.ID
	docs := make(map[core.ID]*docEntry)
	for _, chunk := range chunks {
		entry, ok := docs[chunk.DocumentId]
		if !ok {
			entry = &docEntry{
				title:     chunk.Title,
				sourceURL: chunk.SourceURL,
				indexedAt: chunk.IndexedAt,
			}
			docs[chunk.DocumentId] = entry
			order = append(order, chunk.DocumentId)
		}
		entry.chunks++
	}

	fmt.Printf("%d documents\n", len(order))
	for _, id := range order {
		entry := docs[id]
		fmt.Printf("%s  %s\n", entry.indexedAt.Format("2006-01-02 15:04"), entry.title)
		fmt.Printf("  %s (%d chunks)\n", entry.sourceURL, entry.chunks)
	}
	return nil
}

func addSubscriptionCommand(c *cli.Context) error {
	ctx := context.Background()

	feedURL := c.Args().First()
	if feedURL == "" {
		return fmt.Errorf("a feed URL argument is required")
	}

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now().UTC()
	sub := &core.Subscription{
		FeedURL:   feedURL,
		Name:      c.String("name"),
		Tags:      c.StringSlice("tags"),
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.FeedRepository().AddSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to add subscription: %w", err)
	}

	fmt.Printf("Subscribed to %s\n", feedURL)
	return nil
}

func listSubscriptionsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	subs, err := db.FeedRepository().ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	fmt.Printf("%d subscriptions\n", len(subs))
	for _, sub := range subs {
		state := "enabled"
		if !sub.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s (%s)\n", sub.FeedURL, state)
		if sub.Name != "" {
			fmt.Printf("  name: %s\n", sub.Name)
		}
		if len(sub.Tags) > 0 {
			fmt.Printf("  tags: %s\n", strings.Join(sub.Tags, ", "))
		}
		if !sub.LastChecked.IsZero() {
			fmt.Printf("  last checked: %s\n", sub.LastChecked.Format(time.RFC3339))
		}
		if sub.FetchFailures > 0 {
			fmt.Printf("  consecutive fetch failures: %d\n", sub.FetchFailures)
		}
	}
	return nil
}

func checkFeedsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	monitor, err := db.NewMonitor(pipe)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer monitor.Release()

	report, err := monitor.CheckFeeds(ctx, c.Bool("auto-ingest"))
	if err != nil {
		return fmt.Errorf("feed check failed: %w", err)
	}

	fmt.Printf("Checked %d subscriptions\n", report.Subscriptions)
	fmt.Printf("  new items: %d\n", report.NewItems)
	fmt.Printf("  ingested:  %d\n", report.Ingested)
	fmt.Printf("  queued:    %d\n", report.Queued)
	fmt.Printf("  skipped:   %d\n", report.Skipped)
	if report.FeedErrors > 0 {
		fmt.Printf("  feed errors: %d\n", report.FeedErrors)
	}
	return nil
}

func listPendingCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := db.FeedRepository().ListPendingItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending items: %w", err)
	}

	fmt.Printf("%d pending items\n", len(items))
	for _, item := range items {
		fmt.Printf("%s  %s\n", item.ItemID, item.Title)
		feedName := item.FeedName
		if feedName == "" {
			feedName = item.FeedURL
		}
		fmt.Printf("  from %s, queued %s\n", feedName, item.QueuedAt.Format(time.RFC3339))
	}
	return nil
}

func approveCommand(c *cli.Context) error {
	return approvalCommand(c, true)
}

func rejectCommand(c *cli.Context) error {
	return approvalCommand(c, false)
}

func approvalCommand(c *cli.Context, approve bool) error {
	ctx := context.Background()

	// Rejection never touches the pipeline, so it can run without AI
	// services configured.
	db, err := openDatabase(c, !approve)
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	monitor, err := db.NewMonitor(pipe)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer monitor.Release()

	itemIDs := c.Args().Slice()
	if c.Bool("all") {
		itemIDs, err = monitor.PendingItemIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pending items: %w", err)
		}
	}
	if len(itemIDs) == 0 {
		return fmt.Errorf("no item ids given (use --all for every pending item)")
	}

	var report *feeds.ApprovalReport
	if approve {
		report, err = monitor.Approve(ctx, itemIDs)
	} else {
		report, err = monitor.Reject(ctx, itemIDs)
	}
	if err != nil {
		return err
	}

	verb := "approved"
	if !approve {
		verb = "rejected"
	}
	fmt.Printf("%d items %s\n", len(report.Succeeded), verb)
	for _, id := range report.Failed {
		fmt.Printf("  failed (still pending): %s\n", id)
	}
	return nil
}

func cleanupCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	monitor, err := db.NewMonitor(pipe)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	defer monitor.Release()

	removed, err := monitor.Cleanup(ctx, c.Int("older-than-days"))
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Removed %d processed-item markers\n", removed)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Resume:         c.Bool("resume"),
	}

	// Validate config
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("ai-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	reembedder := db.NewReembedder(config, os.Stderr)
	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	chunkCount, err := db.ChunkRepository().CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	subs, err := db.FeedRepository().ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	pending, err := db.FeedRepository().ListPendingItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending items: %w", err)
	}

	processed, err := db.FeedRepository().CountProcessedItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to count processed items: %w", err)
	}

	fmt.Printf("Chunks:          %d\n", chunkCount)
	fmt.Printf("Subscriptions:   %d\n", len(subs))
	fmt.Printf("Pending items:   %d\n", len(pending))
	fmt.Printf("Processed items: %d\n", processed)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
