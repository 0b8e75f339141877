package core

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored knowledge records.
// It is generated from database sequences or, for index keys, content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// MessageKind classifies a chat message for thread reconstruction.
// It is a closed set: every raw export type maps to exactly one kind.
type MessageKind int

const (
	// MessageKindOther covers everything that is neither a root nor a reply
	// (thread-creation markers, pins, joins, ...). Excluded from threads.
	MessageKindOther MessageKind = iota
	// MessageKindRoot is a top-level message that can anchor a thread.
	MessageKindRoot
	// MessageKindReply is a message referencing a parent message id.
	MessageKindReply
)

// Raw export type values that map onto MessageKind.
const (
	RawTypeDefault = "Default"
	RawTypeReply   = "Reply"
)

// ParseMessageKind maps a raw export type onto a MessageKind.
func ParseMessageKind(raw string) MessageKind {
	switch raw {
	case RawTypeDefault:
		return MessageKindRoot
	case RawTypeReply:
		return MessageKindReply
	default:
		return MessageKindOther
	}
}

func (k MessageKind) String() string {
	switch k {
	case MessageKindRoot:
		return "root"
	case MessageKindReply:
		return "reply"
	default:
		return "other"
	}
}

// MessageReference points a reply at its parent message.
type MessageReference struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId,omitempty"`
	GuildID   string `json:"guildId,omitempty"`
}

// Message is a single chat message loaded from an export.
// Identity is ID, which is unique within a batch but may repeat across
// overlapping batches.
type Message struct {
	ID        string            `json:"id"`
	Kind      MessageKind       `json:"-"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"` // Raw value from the export, may be malformed
	Reference *MessageReference `json:"reference,omitempty"`
	GuildID   string            `json:"guildId,omitempty"`   // Guild of the export the message came from
	ChannelID string            `json:"channelId,omitempty"` // Channel of the export the message came from
}

// ParsedTimestamp parses the raw timestamp.
// The second return value is false when the timestamp is missing or malformed.
func (m *Message) ParsedTimestamp() (time.Time, bool) {
	if m.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ParentID returns the referenced parent message id, or "" when the message has no reference.
func (m *Message) ParentID() string {
	if m.Reference == nil {
		return ""
	}
	return m.Reference.MessageID
}

// ThreadNode is a root message plus every reply (direct or transitive)
// attached to it during reconstruction, flattened into one ordered list.
// Children is nil when no replies were resolved.
type ThreadNode struct {
	Root     Message
	Children []Message
}

// SourceKind identifies where a knowledge record came from.
type SourceKind string

const (
	SourceKindGitHub  SourceKind = "github"
	SourceKindDiscord SourceKind = "discord"
	SourceKindDocs    SourceKind = "docs"
)

// SourceKinds lists every valid SourceKind.
var SourceKinds = []SourceKind{SourceKindGitHub, SourceKindDiscord, SourceKindDocs}

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindGitHub, SourceKindDiscord, SourceKindDocs:
		return true
	}
	return false
}

// ParseSourceKind converts a string into a SourceKind, validating it.
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(s)
	if err := ValidateSourceKind(k); err != nil {
		return "", err
	}
	return k, nil
}

// KnowledgeRecord is one embeddable unit of knowledge.
// Link is the record's identity key for deduplication and must stay stable
// across re-ingestion.
type KnowledgeRecord struct {
	Id         ID
	Content    string
	Link       string
	Kind       SourceKind
	SourceID   string          // External id used for idempotent re-ingestion (optional)
	Meta       json.RawMessage // Structured payload, e.g. thread children (optional)
	Vector     []float32       // Embedding vector (populated by ingestion)
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// LinkGroup is every stored record sharing one link.
type LinkGroup struct {
	Link    string
	Records []*KnowledgeRecord
}

// Duplicated reports whether the group holds more than one record.
func (g *LinkGroup) Duplicated() bool {
	return len(g.Records) > 1
}

// BatchState records that an ingestion batch was fully processed.
type BatchState struct {
	Key         string
	Records     int
	ProcessedAt time.Time
}

// SearchResult represents a search result with the full record and relevance score.
type SearchResult struct {
	Record *KnowledgeRecord
	Score  float32
}
