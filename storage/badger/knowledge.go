package badger

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository for BadgerDB.
type KnowledgeRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (*KnowledgeRepository, error) {
	idSeq, err := backend.GetSequence(knowledgeRecordIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeRepository) Close() error {
	return r.idSeq.Release()
}

// FindSimilar delegates to the backend.
func (r *KnowledgeRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// AddKnowledgeRecords adds one or more knowledge records to storage.
func (r *KnowledgeRepository) AddKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			nextID, err := r.nextID()
			if err != nil {
				return err
			}
			record.Id = nextID
			record.InsertedAt = time.Now().UTC().Truncate(time.Microsecond)
			record.UpdatedAt = record.InsertedAt

			if err := r.writeRecord(tx, record); err != nil {
				return err
			}
			if err := r.setLinkIndex(tx, record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// UpdateKnowledgeRecords updates existing knowledge records.
func (r *KnowledgeRepository) UpdateKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			old, err := r.readRecord(tx, makeKnowledgeRecordKey(record.Id))
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			record.InsertedAt = old.InsertedAt
			record.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

			if err := r.writeRecord(tx, record); err != nil {
				return err
			}

			// Move the link index entry if the link changed
			if old.Link != record.Link {
				if err := r.deleteLinkIndex(tx, old); err != nil {
					return err
				}
				if err := r.setLinkIndex(tx, record); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteKnowledgeRecords removes knowledge records by their IDs.
func (r *KnowledgeRepository) DeleteKnowledgeRecords(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeKnowledgeRecordKey(id)

			// Read the record to find its link index entry
			record, err := r.readRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return storage.ErrNotFound
			}

			if err := r.deleteLinkIndex(tx, record); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetKnowledgeRecord retrieves a single knowledge record by ID.
func (r *KnowledgeRepository) GetKnowledgeRecord(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error) {
	var result *core.KnowledgeRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readRecord(tx, makeKnowledgeRecordKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetKnowledgeRecordsByLink returns every record stored under link.
func (r *KnowledgeRepository) GetKnowledgeRecordsByLink(ctx context.Context, link string) ([]*core.KnowledgeRecord, error) {
	var results []*core.KnowledgeRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.scanLinkIndex(tx, makePartialLinkKey(link), func(record *core.KnowledgeRecord) error {
			// Different links can share a hash prefix
			if record.Link == link {
				results = append(results, record)
			}
			return nil
		})
	}, false)
	return results, err
}

// ListGroupedByLink returns every record grouped by link.
func (r *KnowledgeRepository) ListGroupedByLink(ctx context.Context) ([]*core.LinkGroup, error) {
	groups := make(map[string]*core.LinkGroup)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.scanLinkIndex(tx, []byte(knowledgeLinkPrefix), func(record *core.KnowledgeRecord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if record.Link == "" {
				return nil
			}
			group, ok := groups[record.Link]
			if !ok {
				group = &core.LinkGroup{Link: record.Link}
				groups[record.Link] = group
			}
			group.Records = append(group.Records, record)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	result := make([]*core.LinkGroup, 0, len(groups))
	for _, group := range groups {
		// Index keys sort by ID within one hash, but colliding links interleave
		slices.SortFunc(group.Records, func(a, b *core.KnowledgeRecord) int {
			return cmp.Compare(a.Id, b.Id)
		})
		result = append(result, group)
	}
	slices.SortFunc(result, func(a, b *core.LinkGroup) int {
		return cmp.Compare(a.Link, b.Link)
	})
	return result, nil
}

// ForEachKnowledgeRecord calls fn for every stored record in ID order.
// An error from fn stops the walk and is returned unchanged.
func (r *KnowledgeRepository) ForEachKnowledgeRecord(ctx context.Context, fn func(record *core.KnowledgeRecord) error) error {
	return r.backend.scanRecords(ctx, fn)
}

// CountKnowledgeRecords returns the number of stored records.
func (r *KnowledgeRepository) CountKnowledgeRecords(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(knowledgeRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper methods

// nextID returns the next record ID from the sequence.
func (r *KnowledgeRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// readRecord reads a knowledge record from the transaction.
// Returns nil, nil when the key does not exist.
func (r *KnowledgeRepository) readRecord(tx *badger.Txn, key []byte) (*core.KnowledgeRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.KnowledgeRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalKnowledgeRecord(val)
		return unmarshalErr
	})
	return record, err
}

func (r *KnowledgeRepository) writeRecord(tx *badger.Txn, record *core.KnowledgeRecord) error {
	return tx.Set(makeKnowledgeRecordKey(record.Id), storage.MarshalKnowledgeRecord(record))
}

func (r *KnowledgeRepository) setLinkIndex(tx *badger.Txn, record *core.KnowledgeRecord) error {
	return tx.Set(makeLinkKey(record.Link, record.Id), storage.MarshalID(record.Id))
}

func (r *KnowledgeRepository) deleteLinkIndex(tx *badger.Txn, record *core.KnowledgeRecord) error {
	return tx.Delete(makeLinkKey(record.Link, record.Id))
}

// scanLinkIndex visits every record whose link index key starts with prefix.
// Dangling index entries are skipped.
func (r *KnowledgeRepository) scanLinkIndex(tx *badger.Txn, prefix []byte, fn func(record *core.KnowledgeRecord) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Item().Key(), prefix) {
			break
		}

		var recordID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			recordID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		record, err := r.readRecord(tx, makeKnowledgeRecordKey(recordID))
		if err != nil {
			return err
		}
		if record == nil {
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}
