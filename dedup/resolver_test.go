package dedup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
	"github.com/poiesic/pocketkb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDeleteRefused = errors.New("delete refused")

// refusingStore fails deletes that touch a record of link.
type refusingStore struct {
	storage.KnowledgeRepository
	link string
}

func (s *refusingStore) DeleteKnowledgeRecords(ctx context.Context, ids ...core.ID) error {
	for _, id := range ids {
		record, err := s.GetKnowledgeRecord(ctx, id)
		if err == nil && record.Link == s.link {
			return errDeleteRefused
		}
	}
	return s.KnowledgeRepository.DeleteKnowledgeRecords(ctx, ids...)
}

func setupRepository(t *testing.T) storage.KnowledgeRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func add(t *testing.T, repo storage.KnowledgeRepository, link, content string) *core.KnowledgeRecord {
	t.Helper()
	added, err := repo.AddKnowledgeRecords(context.Background(), &core.KnowledgeRecord{
		Link:    link,
		Content: content,
		Kind:    core.SourceKindGitHub,
	})
	require.NoError(t, err)
	return added[0]
}

func TestNewResolver(t *testing.T) {
	_, err := NewResolver(nil)
	assert.Equal(t, ErrKnowledgeRepositoryRequired, err)

	r, err := NewResolver(setupRepository(t), WithDryRun(true), WithLogger(nil))
	require.NoError(t, err)
	assert.True(t, r.dryRun)
	assert.NotNil(t, r.logger)
}

func TestRun_KeepsLongest(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	add(t, repo, "L", strings.Repeat("a", 50))
	long := add(t, repo, "L", strings.Repeat("b", 120))

	r, err := NewResolver(repo)
	require.NoError(t, err)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicated)
	assert.Equal(t, 1, report.Deleted)

	remaining, err := repo.GetKnowledgeRecordsByLink(ctx, "L")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, long.Id, remaining[0].Id)
}

func TestRun_Idempotent(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	add(t, repo, "L1", "x")
	add(t, repo, "L1", "xx")
	add(t, repo, "L1", "xxx")
	add(t, repo, "L2", "only")

	r, err := NewResolver(repo)
	require.NoError(t, err)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Deleted)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Deleted)
	assert.Zero(t, second.Duplicated)
	assert.Equal(t, 2, second.Groups)
}

func TestRun_DryRun(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	short := add(t, repo, "L", "short")
	add(t, repo, "L", "much longer")

	r, err := NewResolver(repo, WithDryRun(true))
	require.NoError(t, err)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.Results, 1)
	assert.Equal(t, []core.ID{short.Id}, report.Results[0].Deleted)

	count, err := repo.CountKnowledgeRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRun_GroupFailureIsolated(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	add(t, repo, "A", "a")
	add(t, repo, "A", "aa")
	add(t, repo, "B", "b")
	add(t, repo, "B", "bb")

	var logs bytes.Buffer
	r, err := NewResolver(&refusingStore{KnowledgeRepository: repo, link: "A"},
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	report, err := r.Run(ctx)
	assert.ErrorIs(t, err, ErrGroupCleanup)
	assert.ErrorIs(t, err, errDeleteRefused)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Deleted)
	assert.Contains(t, logs.String(), "failed to delete duplicates")

	a, err := repo.GetKnowledgeRecordsByLink(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, a, 2)

	b, err := repo.GetKnowledgeRecordsByLink(ctx, "B")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "bb", b[0].Content)
}

func TestSelectCanonical(t *testing.T) {
	tests := []struct {
		name    string
		records []*core.KnowledgeRecord
		want    core.ID
	}{
		{
			name:    "single",
			records: []*core.KnowledgeRecord{{Id: 4, Content: "x"}},
			want:    4,
		},
		{
			name: "longest wins",
			records: []*core.KnowledgeRecord{
				{Id: 1, Content: "short"},
				{Id: 2, Content: "the longest one"},
				{Id: 3, Content: "medium"},
			},
			want: 2,
		},
		{
			name: "tie goes to lowest id",
			records: []*core.KnowledgeRecord{
				{Id: 9, Content: "same"},
				{Id: 3, Content: "abcd"},
				{Id: 5, Content: "wxyz"},
			},
			want: 3,
		},
		{
			name: "length counts runes not bytes",
			records: []*core.KnowledgeRecord{
				{Id: 1, Content: "ééé"},
				{Id: 2, Content: "abcd"},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectCanonical(tt.records).Id)
		})
	}
}
