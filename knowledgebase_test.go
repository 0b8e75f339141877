package pocketkb

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/ai/mock"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/ingestion"
	"github.com/poiesic/pocketkb/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		provider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder())
		kb, err := Open(filepath.Join(t.TempDir(), "kb"), WithProvider(provider))
		require.NoError(t, err)

		assert.NotNil(t, kb.KnowledgeRepository())
		assert.NotNil(t, kb.BatchRepository())
		assert.Same(t, provider, kb.Provider())

		require.NoError(t, kb.Close())
		assert.True(t, provider.Closed())
	})

	t.Run("missing api key fails before opening", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "never")
		_, err := Open(dir, WithAIConfig(ai.NewConfig()))
		assert.ErrorIs(t, err, ai.ErrMissingAPIKey)

		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0644))

		provider := mock.NewMockProviderWithEmbedder(mock.NewMockEmbedder())
		kb, err := Open(file, WithProvider(provider))
		assert.Error(t, err)
		assert.Nil(t, kb)
		assert.True(t, provider.Closed())
	})
}

func TestKnowledgebase_EndToEnd(t *testing.T) {
	kb, err := Open("", WithInMemory(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer kb.Close()
	ctx := context.Background()

	pipeline, err := kb.NewIngestionPipeline(ingestion.NewTracker(), ingestion.WithBatchRepository(kb.BatchRepository()))
	require.NoError(t, err)
	defer pipeline.Release()

	records := func() []*core.KnowledgeRecord {
		return []*core.KnowledgeRecord{
			{Link: "https://github.com/o/r/issues/1", Content: "# Crash\nshort", Kind: core.SourceKindGitHub},
			{Link: "https://github.com/o/r/issues/1", Content: "# Crash\nlonger body text", Kind: core.SourceKindGitHub},
		}
	}
	_, err = pipeline.IngestBatch(ctx, "issues.json", records())
	require.NoError(t, err)

	resolver, err := kb.NewResolver()
	require.NoError(t, err)
	report, err := resolver.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)

	searcher, err := kb.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.FindSimilar(ctx, "# Crash\nlonger body text", &search.Options{MinSimilarity: 0.99})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "# Crash\nlonger body text", results[0].Record.Content)

	require.NoError(t, kb.NewReembedder(nil, io.Discard).Run(ctx))

	states, err := kb.BatchRepository().LoadBatchStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "issues.json", states[0].Key)
}
