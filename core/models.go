package core

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NewDocumentID mints the document identity grouping all chunks produced by
// one ingestion of one source URL. The ingestion timestamp is part of the
// identity so a re-ingestion produces a fresh chunk set.
func NewDocumentID(sourceURL string, ingestedAt time.Time) ID {
	return IDFromContent(fmt.Sprintf("%s@%d", sourceURL, ingestedAt.UnixMicro()))
}

// NewChunkID derives a stable chunk identifier from the parent document
// identity and the chunk ordinal.
func NewChunkID(documentID ID, index int) ID {
	return IDFromContent(fmt.Sprintf("%d#%d", documentID, index))
}

// FeedItemID computes the stable dedup identifier for a feed item.
// The hash covers the feed URL plus the feed's native entry identifier
// (falling back to the item link when the feed provides no id).
func FeedItemID(feedURL, nativeID string) string {
	sum := md5.Sum([]byte(feedURL + ":" + nativeID))
	return hex.EncodeToString(sum[:])
}

// ContentType identifies the format of a raw document's content.
type ContentType int

const (
	// ContentTypeHTML is raw HTML markup.
	ContentTypeHTML ContentType = iota + 1
	// ContentTypeMarkdown is markdown text requiring no conversion.
	ContentTypeMarkdown
	// ContentTypeText is plain text.
	ContentTypeText
	// ContentTypeFeedItem is content carried by an RSS/Atom feed entry.
	ContentTypeFeedItem
)

// String returns the canonical name of the content type.
func (t ContentType) String() string {
	switch t {
	case ContentTypeHTML:
		return "html"
	case ContentTypeMarkdown:
		return "markdown"
	case ContentTypeText:
		return "text"
	case ContentTypeFeedItem:
		return "feed-item"
	default:
		return fmt.Sprintf("content-type(%d)", int(t))
	}
}

// ParseContentType converts a canonical name back to a ContentType.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "html":
		return ContentTypeHTML, nil
	case "markdown":
		return ContentTypeMarkdown, nil
	case "text":
		return ContentTypeText, nil
	case "feed-item":
		return ContentTypeFeedItem, nil
	default:
		return 0, fmt.Errorf("%w: unknown content type %q", ErrInvalidContentType, s)
	}
}

// RawDocument is the input unit of the ingestion pipeline.
// It is constructed by a retriever (web fetch or feed parse) and treated as
// immutable once handed to the pipeline.
type RawDocument struct {
	Content        string
	SourceURL      string
	Title          string
	Summary        string // pre-supplied summary, skips the summarization stage when set
	ContentType    ContentType
	SourceMetadata map[string]string
	Tags           []string
	CreatedAt      time.Time
}

// Link is a hyperlink extracted from a document's markdown content.
type Link struct {
	URL  string
	Text string
	Hint string // classification hint, e.g. "documentation", "code"
}

// Chunk is the persisted unit: an embedding-bearing fragment of one
// ingested document.
type Chunk struct {
	Id          ID
	DocumentId  ID // groups all chunks from one ingestion of one source URL
	Title       string
	SourceURL   string
	Content     string
	Vector      []float32
	Tags        []string
	ChunkIndex  int
	TotalChunks int
	IndexedAt   time.Time // when the chunk was persisted
	CreatedAt   time.Time // original document created timestamp
	Metadata    map[string]string
}

// Subscription is the durable configuration for one monitored feed.
type Subscription struct {
	FeedURL       string
	Name          string
	Description   string
	Tags          []string // applied to every item the feed produces
	Enabled       bool
	LastChecked   time.Time
	LastItemSeen  time.Time // max published timestamp observed
	FetchFailures int       // consecutive feed fetch failures
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProcessedItem is the durable dedup marker for a feed item. Its presence
// means the item must never be queued or ingested again, regardless of
// whether it was approved or rejected.
type ProcessedItem struct {
	FeedURL     string
	ItemID      string
	ProcessedAt time.Time
}

// PendingItem is a feed item queued for human approval before ingestion.
type PendingItem struct {
	FeedURL     string
	ItemID      string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Published   time.Time
	Categories  []string
	FeedName    string
	FeedTags    []string
	QueuedAt    time.Time
}

// FeedItem is one normalized entry from a parsed feed.
type FeedItem struct {
	NativeID    string // entry GUID, or link when the feed provides no id
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Published   time.Time
	Categories  []string
}

// SearchResult is a chunk match with its relevance score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// Checkpoint records batch-processor progress so long-running maintenance
// jobs (reembedding) can resume after interruption.
type Checkpoint struct {
	ProcessorType string
	LastIndexedAt time.Time // IndexedAt of the last chunk handled
	Processed     int
	UpdatedAt     time.Time
}
