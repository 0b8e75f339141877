package repair

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// DefaultContentSuffix is the artefact earlier exporters appended to content.
const DefaultContentSuffix = "undefined"

// Result counts what one pass did.
type Result struct {
	Scanned int // Records of the requested kind
	Changed int // Records updated, or that would be in a dry run
}

// BackfillSourceIDs sets the SourceID of every record of kind that has none
// to the last path segment of its link.
func BackfillSourceIDs(ctx context.Context, repo storage.KnowledgeRepository, kind core.SourceKind, dryRun bool) (*Result, error) {
	return rewrite(ctx, repo, kind, dryRun, "backfill-source-ids", func(record *core.KnowledgeRecord) bool {
		if record.SourceID != "" {
			return false
		}
		id := lastPathSegment(record.Link)
		if id == "" {
			return false
		}
		record.SourceID = id
		return true
	})
}

// StripContentSuffix removes a trailing suffix from the content of every
// record of kind. Whitespace left in front of the suffix is trimmed too.
func StripContentSuffix(ctx context.Context, repo storage.KnowledgeRepository, kind core.SourceKind, suffix string, dryRun bool) (*Result, error) {
	if suffix == "" {
		return nil, fmt.Errorf("suffix cannot be empty")
	}
	return rewrite(ctx, repo, kind, dryRun, "strip-content-suffix", func(record *core.KnowledgeRecord) bool {
		trimmed, ok := strings.CutSuffix(record.Content, suffix)
		if !ok {
			return false
		}
		trimmed = strings.TrimRight(trimmed, " \t\r\n")
		if trimmed == "" {
			// Never leave a record without content
			return false
		}
		record.Content = trimmed
		return true
	})
}

// rewrite applies fix to every record of kind and stores the changed ones.
func rewrite(ctx context.Context, repo storage.KnowledgeRepository, kind core.SourceKind, dryRun bool, pass string, fix func(*core.KnowledgeRecord) bool) (*Result, error) {
	if err := core.ValidateSourceKind(kind); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "repair", "pass", pass, "kind", kind, "dryRun", dryRun)

	result := &Result{}
	var changed []*core.KnowledgeRecord
	err := repo.ForEachKnowledgeRecord(ctx, func(record *core.KnowledgeRecord) error {
		if record.Kind != kind {
			return nil
		}
		result.Scanned++
		if fix(record) {
			changed = append(changed, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Changed = len(changed)
	if !dryRun && len(changed) > 0 {
		if _, err := repo.UpdateKnowledgeRecords(ctx, changed...); err != nil {
			return nil, fmt.Errorf("%s: %w", pass, err)
		}
	}

	logger.Info("repair finished", "scanned", result.Scanned, "changed", result.Changed)
	return result, nil
}

// lastPathSegment returns the final non-empty path segment of link,
// ignoring any query string or fragment.
func lastPathSegment(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return ""
}
