package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/poiesic/pocketkb/core"
)

// Issue is one issue from an issue-tracker export.
type Issue struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
}

// LoadIssues decodes an issue export (a JSON array of issues).
func LoadIssues(r io.Reader) ([]Issue, error) {
	var issues []Issue
	if err := json.NewDecoder(r).Decode(&issues); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExport, err)
	}
	return issues, nil
}

// LoadIssueFile decodes the issue export stored at path.
func LoadIssueFile(path string) ([]Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	issues, err := LoadIssues(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return issues, nil
}

// IssueRecord converts an issue into a github knowledge record.
func IssueRecord(issue Issue) *core.KnowledgeRecord {
	return &core.KnowledgeRecord{
		Content:  "# " + issue.Title + "\n" + issue.Body,
		Link:     issue.HTMLURL,
		Kind:     core.SourceKindGitHub,
		SourceID: strconv.FormatInt(issue.ID, 10),
	}
}

// IssueRecords converts every issue, keeping order.
func IssueRecords(issues []Issue) []*core.KnowledgeRecord {
	records := make([]*core.KnowledgeRecord, 0, len(issues))
	for _, issue := range issues {
		records = append(records, IssueRecord(issue))
	}
	return records
}

// RecentIssues returns the n most recently created issues, newest first.
// Issues with an unparseable created_at sort after all others in their
// original order. n <= 0 returns every issue sorted.
func RecentIssues(issues []Issue, n int) []Issue {
	sorted := slices.Clone(issues)
	slices.SortStableFunc(sorted, func(a, b Issue) int {
		ta, okA := parseCreatedAt(a.CreatedAt)
		tb, okB := parseCreatedAt(b.CreatedAt)
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func parseCreatedAt(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
