package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/corpus/core"
)

// Key prefixes for different data types. Primary and index prefixes are
// chosen so that no prefix is a prefix of another once the ":" separator
// is appended, which keeps prefix iteration clean.
const (
	chunkRecordPrefix  = "chkrec"
	chunkDocPrefix     = "chkdoc"
	chunkSourcePrefix  = "chksrc"
	chunkTagPrefix     = "chktag"
	chunkDatePrefix    = "chkdat"
	subscriptionPrefix = "subrec"
	processedPrefix    = "prorec"
	pendingPrefix      = "penrec"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocKey generates a composite key for the document index.
// Format: prefix:documentID:chunkIndex. The index component keeps chunks
// iterable in ordinal order within a document.
func makeChunkDocKey(documentID core.ID, chunkIndex int) []byte {
	prefix := chunkDocPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// BigEndian so lexicographic sort matches numeric order
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	return buf
}

// makePartialChunkDocKey generates the iteration prefix for one document.
func makePartialChunkDocKey(documentID core.ID) []byte {
	prefix := chunkDocPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeChunkSourceKey generates a composite key for the source URL index.
// The URL is hashed so keys stay fixed-width.
// Format: prefix:urlHash:chunkID
func makeChunkSourceKey(sourceURL string, chunkID core.ID) []byte {
	prefix := chunkSourcePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(sourceURL)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkSourceKey generates the iteration prefix for one source URL.
func makePartialChunkSourceKey(sourceURL string) []byte {
	prefix := chunkSourcePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(sourceURL)))
	return buf
}

// makeChunkTagKey generates a composite key for the tag index.
// Format: prefix:tagHash:chunkID
func makeChunkTagKey(tag string, chunkID core.ID) []byte {
	prefix := chunkTagPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(tag)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkTagKey generates the iteration prefix for one tag.
func makePartialChunkTagKey(tag string) []byte {
	prefix := chunkTagPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(tag)))
	return buf
}

// makeChunkDateKey generates a composite key for the indexed-time index.
// Format: prefix:timestamp:chunkID
func makeChunkDateKey(timestamp time.Time, chunkID core.ID) []byte {
	prefix := chunkDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkDateKey generates a partial key for date range queries.
func makePartialChunkDateKey(timestamp time.Time) []byte {
	prefix := chunkDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeSubscriptionKey generates a key for a subscription by feed URL.
func makeSubscriptionKey(feedURL string) []byte {
	return []byte(subscriptionPrefix + ":" + feedURL)
}

// makeProcessedKey generates a key for a processed-item dedup marker.
// The item id already hashes the feed URL, so it is globally unique.
func makeProcessedKey(itemID string) []byte {
	return []byte(processedPrefix + ":" + itemID)
}

// makePendingKey generates a key for a pending item.
func makePendingKey(itemID string) []byte {
	return []byte(pendingPrefix + ":" + itemID)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
