package badger

import (
	"encoding/binary"

	"github.com/poiesic/pocketkb/core"
)

// Key prefixes for different data types
const (
	knowledgeRecordPrefix = "kbrec:"
	knowledgeLinkPrefix   = "kblink:"
	knowledgeRecordIDSeq  = "kbrecseq"
	batchStatePrefix      = "batch:"
)

// makeKnowledgeRecordKey generates a key for a knowledge record by ID.
// Format: prefix + 8-byte big-endian id, so iteration follows ID order.
func makeKnowledgeRecordKey(id core.ID) []byte {
	buf := make([]byte, len(knowledgeRecordPrefix)+8)
	offset := copy(buf, knowledgeRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeLinkKey generates a composite key for the link index.
// Format: prefix + linkHash + recordID
// The hash keeps keys fixed width; readers must compare the stored link since
// two links can share a hash.
func makeLinkKey(link string, id core.ID) []byte {
	prefix := makePartialLinkKey(link)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialLinkKey generates the prefix of every link index key for link.
// Format: prefix + linkHash
func makePartialLinkKey(link string) []byte {
	buf := make([]byte, len(knowledgeLinkPrefix)+8)
	offset := copy(buf, knowledgeLinkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(link)))
	return buf
}

// makeBatchStateKey generates a key for a persisted batch state.
func makeBatchStateKey(batchKey string) []byte {
	return []byte(batchStatePrefix + batchKey)
}
