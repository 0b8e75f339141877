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

package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// Resolver deletes every non-canonical record of each duplicated link.
type Resolver struct {
	repository storage.KnowledgeRepository
	dryRun     bool
	logger     *slog.Logger
}

// GroupResult describes what happened to one duplicated link.
type GroupResult struct {
	Link      string
	Canonical core.ID
	Deleted   []core.ID // Planned deletions in a dry run
	Err       error
}

// Report summarizes one Run.
type Report struct {
	DryRun     bool
	Groups     int // Links seen
	Duplicated int // Links with more than one record
	Deleted    int // Records deleted, or that would be in a dry run
	Failed     int // Groups whose cleanup failed
	Results    []GroupResult
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithDryRun reports intended deletions without executing them.
func WithDryRun(dryRun bool) Option {
	return func(r *Resolver) error {
		r.dryRun = dryRun
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResolver creates a new duplicate resolver.
func NewResolver(repository storage.KnowledgeRepository, opts ...Option) (*Resolver, error) {
	if repository == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}

	r := &Resolver{
		repository: repository,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "dedup", "dryRun", r.dryRun)

	return r, nil
}

// Run deduplicates the whole store once.
// A failed delete aborts only its own group; the returned error joins every
// group failure, each wrapping ErrGroupCleanup.
func (r *Resolver) Run(ctx context.Context) (*Report, error) {
	groups, err := r.repository.ListGroupedByLink(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: r.dryRun, Groups: len(groups)}
	var errs []error
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !group.Duplicated() {
			continue
		}
		report.Duplicated++

		canonical := SelectCanonical(group.Records)
		result := GroupResult{Link: group.Link, Canonical: canonical.Id}
		for _, record := range group.Records {
			if record.Id != canonical.Id {
				result.Deleted = append(result.Deleted, record.Id)
			}
		}

		if !r.dryRun {
			if err := r.repository.DeleteKnowledgeRecords(ctx, result.Deleted...); err != nil {
				result.Err = fmt.Errorf("%w: %s: %w", ErrGroupCleanup, group.Link, err)
				errs = append(errs, result.Err)
				report.Failed++
				report.Results = append(report.Results, result)
				r.logger.Error("failed to delete duplicates", "link", group.Link, "err", err)
				continue
			}
		}

		report.Deleted += len(result.Deleted)
		report.Results = append(report.Results, result)
		r.logger.Info("resolved duplicates",
			"link", group.Link,
			"kept", canonical.Id,
			"deleted", len(result.Deleted))
	}

	r.logger.Info("dedup finished",
		"groups", report.Groups,
		"duplicated", report.Duplicated,
		"deleted", report.Deleted,
		"failed", report.Failed)
	return report, errors.Join(errs...)
}

// SelectCanonical returns the record with the longest content, counted in
// runes. Equal lengths go to the lowest id. records must not be empty.
func SelectCanonical(records []*core.KnowledgeRecord) *core.KnowledgeRecord {
	best := records[0]
	bestLen := utf8.RuneCountInString(best.Content)
	for _, record := range records[1:] {
		n := utf8.RuneCountInString(record.Content)
		if n > bestLen || (n == bestLen && record.Id < best.Id) {
			best, bestLen = record, n
		}
	}
	return best
}
