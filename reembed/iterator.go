package reembed

import (
	"context"
	"errors"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

const (
	// DefaultBatchSize is the default number of records handed to fn at once
	DefaultBatchSize = 100
)

// errStopIteration ends the underlying scan early without being an error.
var errStopIteration = errors.New("stop iteration")

// RecordIterator streams stored knowledge records in ID order, in batches.
type RecordIterator struct {
	repo      storage.KnowledgeRepository
	batchSize int
	kinds     []core.SourceKind
}

// NewRecordIterator creates a new record iterator.
// A batchSize <= 0 uses DefaultBatchSize. When kinds is non-empty only
// records of those kinds are visited.
func NewRecordIterator(repo storage.KnowledgeRepository, batchSize int, kinds ...core.SourceKind) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		repo:      repo,
		batchSize: batchSize,
		kinds:     kinds,
	}
}

// ForEach calls fn with consecutive batches of records.
// Iteration stops on the first error from fn or when ctx ends.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.KnowledgeRecord) error) error {
	batch := make([]*core.KnowledgeRecord, 0, it.batchSize)
	var fnErr error

	err := it.repo.ForEachKnowledgeRecord(ctx, func(record *core.KnowledgeRecord) error {
		if !it.matches(record) {
			return nil
		}
		batch = append(batch, record)
		if len(batch) < it.batchSize {
			return nil
		}

		fnErr = fn(batch)
		batch = make([]*core.KnowledgeRecord, 0, it.batchSize)
		if fnErr != nil {
			return errStopIteration
		}
		return nil
	})
	if errors.Is(err, errStopIteration) {
		return fnErr
	}
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Count returns how many records ForEach would visit.
func (it *RecordIterator) Count(ctx context.Context) (int, error) {
	if len(it.kinds) == 0 {
		return it.repo.CountKnowledgeRecords(ctx)
	}
	n := 0
	err := it.repo.ForEachKnowledgeRecord(ctx, func(record *core.KnowledgeRecord) error {
		if it.matches(record) {
			n++
		}
		return nil
	})
	return n, err
}

func (it *RecordIterator) matches(record *core.KnowledgeRecord) bool {
	if len(it.kinds) == 0 {
		return true
	}
	for _, kind := range it.kinds {
		if record.Kind == kind {
			return true
		}
	}
	return false
}
