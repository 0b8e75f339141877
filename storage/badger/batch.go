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

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// BatchRepository implements storage.BatchRepository for BadgerDB.
type BatchRepository struct {
	backend *Backend
}

var _ storage.BatchRepository = (*BatchRepository)(nil)

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(backend *Backend) *BatchRepository {
	return &BatchRepository{
		backend: backend,
	}
}

// SaveBatchState persists the state of a processed batch.
// ProcessedAt defaults to now when unset.
func (r *BatchRepository) SaveBatchState(ctx context.Context, state *core.BatchState) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if state.ProcessedAt.IsZero() {
			state.ProcessedAt = time.Now().UTC().Truncate(time.Microsecond)
		}
		if err := tx.Set(makeBatchStateKey(state.Key), storage.MarshalBatchState(state)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadBatchStates returns every persisted batch state ordered by key.
func (r *BatchRepository) LoadBatchStates(ctx context.Context) ([]*core.BatchState, error) {
	var states []*core.BatchState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(batchStatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				state, err := storage.UnmarshalBatchState(val)
				if err != nil {
					return err
				}
				states = append(states, state)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return states, err
}

// DeleteBatchState removes the persisted state for a batch key.
func (r *BatchRepository) DeleteBatchState(ctx context.Context, key string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeBatchStateKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
