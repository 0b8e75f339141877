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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// Config controls a reembedding run.
type Config struct {
	BatchSize      int           // Records per embedding call
	ReportInterval int           // Records between progress lines
	MaxRetries     int           // Attempts per embedding call and per update
	RetryDelay     time.Duration // First backoff delay, doubled per retry
	Kinds          []core.SourceKind
}

// DefaultConfig re-embeds every kind, 100 records at a time.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Validate rejects non-positive sizes and unknown kinds.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be greater than 0", ErrInvalidConfig)
	case c.ReportInterval <= 0:
		return fmt.Errorf("%w: report interval must be greater than 0", ErrInvalidConfig)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max retries must be greater than 0", ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay cannot be negative", ErrInvalidConfig)
	}
	for _, kind := range c.Kinds {
		if err := core.ValidateSourceKind(kind); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Reembedder replaces the vectors of stored records, for example after
// switching embedding models.
type Reembedder struct {
	config    *Config
	out       io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
	logger    *slog.Logger
}

// NewReembedder prepares a run over repo. A nil config means DefaultConfig.
// Human-readable progress goes to out.
func NewReembedder(repo storage.KnowledgeRepository, embedder ai.Embedder, config *Config, out io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Reembedder{
		config:    config,
		out:       out,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewRecordIterator(repo, config.BatchSize, config.Kinds...),
		logger:    slog.Default().With("component", "reembed"),
	}
}

// Run streams the selected records through the embedder batch by batch.
// The first batch that still fails after its retries ends the run; earlier
// batches keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	total, err := r.iterator.Count(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if total == 0 {
		fmt.Fprintln(r.out, "Nothing to reembed (0 records)")
		return nil
	}
	fmt.Fprintf(r.out, "Starting reembedding of %d records (batch size: %d)\n", total, r.config.BatchSize)

	tracker := NewProgressTracker(r.out, total, r.config.ReportInterval, WithLabel("Reembedding"))
	tracker.Start()

	done := 0
	err = r.iterator.ForEach(ctx, func(batch []*core.KnowledgeRecord) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			r.logger.Error("batch failed", "firstID", batch[0].Id, "size", len(batch), "done", done, "err", err)
			return err
		}
		done += len(batch)
		tracker.Update(done)
		return nil
	})
	tracker.Finish()
	if err != nil {
		return fmt.Errorf("reembedded %d of %d records: %w", done, total, err)
	}

	elapsed := tracker.Elapsed().Round(time.Millisecond)
	fmt.Fprintf(r.out, "Reembedding complete. Processed %d records in %v\n", done, elapsed)
	r.logger.Info("reembedding complete", "records", done, "elapsed", elapsed)
	return nil
}
