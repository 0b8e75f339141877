package ingestion

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/pocketkb/storage"
)

// Tracker records which batches were fully processed.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	processed map[string]struct{}
}

// NewTracker creates a tracker that already considers keys processed.
func NewTracker(keys ...string) *Tracker {
	t := &Tracker{processed: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		t.processed[key] = struct{}{}
	}
	return t
}

// LoadTracker creates a tracker seeded from persisted batch states.
func LoadTracker(ctx context.Context, repo storage.BatchRepository) (*Tracker, error) {
	states, err := repo.LoadBatchStates(ctx)
	if err != nil {
		return nil, err
	}
	t := NewTracker()
	for _, state := range states {
		t.MarkProcessed(state.Key)
	}
	return t, nil
}

// IsProcessed reports whether key was marked processed.
func (t *Tracker) IsProcessed(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.processed[key]
	return ok
}

// MarkProcessed records key as processed. Marking twice is a no-op.
func (t *Tracker) MarkProcessed(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed[key] = struct{}{}
}

// Keys returns every processed key, sorted.
func (t *Tracker) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.processed))
	for key := range t.processed {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
