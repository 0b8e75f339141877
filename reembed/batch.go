package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage"
)

// retryPolicy bundles the attempt budget shared by every call of a batch.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, fn, p.attempts, p.delay)
}

// BatchProcessor replaces the vectors of a batch of stored records.
type BatchProcessor struct {
	repo     storage.KnowledgeRepository
	embedder ai.Embedder
	retry    retryPolicy
}

// NewBatchProcessor allows maxAttempts tries for the embedding call and for
// the update, backing off from baseDelay.
func NewBatchProcessor(repo storage.KnowledgeRepository, embedder ai.Embedder, maxAttempts int, baseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:     repo,
		embedder: embedder,
		retry:    retryPolicy{attempts: maxAttempts, delay: baseDelay},
	}
}

// Process embeds the batch in a single call and writes the normalized
// vectors back in a single update. The store is untouched unless every record
// got a vector.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.KnowledgeRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, 0, len(records))
	for _, record := range records {
		texts = append(texts, record.Content)
	}

	var vectors [][]float32
	if err := bp.retry.do(ctx, func() (err error) {
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}); err != nil {
		return fmt.Errorf("embed %d records after %d attempts: %w", len(records), bp.retry.attempts, err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: sent %d texts, got %d vectors", ErrEmbeddingCountMismatch, len(records), len(vectors))
	}

	for i, record := range records {
		record.Vector = NormalizeVector(vectors[i])
	}

	if err := bp.retry.do(ctx, func() error {
		_, err := bp.repo.UpdateKnowledgeRecords(ctx, records...)
		return err
	}); err != nil {
		return fmt.Errorf("update %d records: %w", len(records), err)
	}
	return nil
}
