package storage

import (
	"context"

	"github.com/poiesic/pocketkb/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds knowledge records similar to the given vector.
	// Returns records with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Close releases resources held by the repository.
	Close() error
}

// KnowledgeRepository provides operations for managing knowledge records.
type KnowledgeRepository interface {
	Repository

	// AddKnowledgeRecords stores one or more records.
	// Every record gets a new ID from the sequence, even when one with the same
	// link already exists. Sets InsertedAt and UpdatedAt.
	// Returns the records with generated IDs and timestamps populated.
	AddKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error)

	// UpdateKnowledgeRecords updates existing records, moving link index entries
	// when the link changed. Updates UpdatedAt.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error)

	// DeleteKnowledgeRecords removes records and their link index entries.
	// Returns ErrNotFound if any record doesn't exist; nothing is deleted then.
	DeleteKnowledgeRecords(ctx context.Context, ids ...core.ID) error

	// GetKnowledgeRecord retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetKnowledgeRecord(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error)

	// GetKnowledgeRecordsByLink returns every record stored under link, ordered by ID.
	GetKnowledgeRecordsByLink(ctx context.Context, link string) ([]*core.KnowledgeRecord, error)

	// ListGroupedByLink returns every stored record grouped by link.
	// Records with an empty link are left out. Groups are ordered by link and
	// records within a group by ID.
	ListGroupedByLink(ctx context.Context) ([]*core.LinkGroup, error)

	// ForEachKnowledgeRecord calls fn for every stored record in ID order.
	// Iteration stops at the first error returned by fn.
	ForEachKnowledgeRecord(ctx context.Context, fn func(record *core.KnowledgeRecord) error) error

	// CountKnowledgeRecords returns the number of stored records.
	CountKnowledgeRecords(ctx context.Context) (int, error)
}

// BatchRepository persists ingestion batch states so a tracker can be
// seeded across runs.
type BatchRepository interface {
	// SaveBatchState stores or replaces the state for state.Key.
	SaveBatchState(ctx context.Context, state *core.BatchState) error

	// LoadBatchStates returns every persisted state ordered by key.
	LoadBatchStates(ctx context.Context) ([]*core.BatchState, error)

	// DeleteBatchState forgets a batch. Deleting an unknown key is not an error.
	DeleteBatchState(ctx context.Context, key string) error
}
