package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/reembed"
	"github.com/poiesic/pocketkb/storage"
)

// embeddingProcessor embeds a record and then stores it.
type embeddingProcessor struct {
	repo        storage.KnowledgeRepository
	embedder    ai.Embedder
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(repo storage.KnowledgeRepository, embedder ai.Embedder, maxAttempts int, retryDelay, callTimeout time.Duration, logger *slog.Logger) (processor, error) {
	if repo == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrAIProviderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		repo:        repo,
		embedder:    embedder,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		callTimeout: callTimeout,
		logger:      logger.With("processor", "embeddings"),
	}, nil
}

// process embeds record.Content, normalizes the vector and stores the record.
// The record is only stored once an embedding exists.
func (ep *embeddingProcessor) process(ctx context.Context, record *core.KnowledgeRecord) error {
	var vector []float32
	err := reembed.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := ep.callContext(ctx)
		defer cancel()

		v, err := ep.embedder.EmbedText(callCtx, record.Content)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ErrEmptyEmbedding
		}
		vector = v
		return nil
	}, ep.maxAttempts, ep.retryDelay)
	if err != nil {
		return fmt.Errorf("embed %s: %w", record.Link, err)
	}

	record.Vector = reembed.NormalizeVector(vector)

	err = reembed.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := ep.callContext(ctx)
		defer cancel()

		_, err := ep.repo.AddKnowledgeRecords(callCtx, record)
		return err
	}, ep.maxAttempts, ep.retryDelay)
	if err != nil {
		return fmt.Errorf("store %s: %w", record.Link, err)
	}

	ep.logger.Debug("record stored", "id", record.Id, "link", record.Link)
	return nil
}

// callContext bounds a single embed or store attempt.
func (ep *embeddingProcessor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ep.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ep.callTimeout)
}
