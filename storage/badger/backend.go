package badger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

const sequenceBandwidth = 100

// Backend owns the BadgerDB handle shared by the repositories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) log(level slog.Level, format string, args ...any) {
	if !a.logger.Enabled(context.Background(), level) {
		return
	}
	a.logger.Log(context.Background(), level, strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}

func (a *slogAdapter) Errorf(format string, args ...any) { a.log(slog.LevelError, format, args...) }

func (a *slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args...) }

func (a *slogAdapter) Infof(format string, args ...any) { a.log(slog.LevelInfo, format, args...) }

func (a *slogAdapter) Debugf(format string, args ...any) { a.log(slog.LevelDebug, format, args...) }

// OpenBackend opens the database directory at filePath, creating it when
// missing. With inMemory set filePath is ignored and nothing touches disk.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger")
	opts = opts.WithLogger(&slogAdapter{logger: logger}).WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", filePath, err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn inside a transaction, read-write when isWrite is set.
// fn commits explicitly; anything uncommitted is discarded.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns the named id sequence.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), sequenceBandwidth)
}

// scanRecords decodes every knowledge record in ID order inside one read
// transaction and hands it to fn. Cancellation is checked per record.
func (b *Backend) scanRecords(ctx context.Context, fn func(record *core.KnowledgeRecord) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(knowledgeRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.KnowledgeRecord
			err := iter.Item().Value(func(val []byte) (err error) {
				record, err = storage.UnmarshalKnowledgeRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// FindSimilar scores every embedded record against vector and returns those
// scoring at least minSimilarity, best first. Equal scores keep ID order.
// Vectors are assumed normalized so the dot product is the cosine.
// A limit <= 0 returns every match.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []*core.SearchResult
	err := b.scanRecords(ctx, func(record *core.KnowledgeRecord) error {
		if len(record.Vector) == 0 {
			return nil
		}
		if score := dotProduct(vector, record.Vector); score >= minSimilarity {
			results = append(results, &core.SearchResult{Record: record, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(x, y *core.SearchResult) int {
		return cmp.Compare(y.Score, x.Score)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// dotProduct sums over the shorter of the two vectors.
func dotProduct(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := range n {
		sum += a[i] * b[i]
	}
	return sum
}
