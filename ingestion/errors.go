package ingestion

import "errors"

var (
	// ErrKnowledgeRepositoryRequired is returned when a knowledge repository is not provided.
	ErrKnowledgeRepositoryRequired = errors.New("knowledge repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrTrackerRequired is returned when no ingestion tracker is provided.
	ErrTrackerRequired = errors.New("ingestion tracker required")

	// ErrEmptyBatchKey is returned when a batch has no key to track it by.
	ErrEmptyBatchKey = errors.New("batch key cannot be empty")

	// ErrBatchIncomplete is returned when at least one record of a batch failed.
	// The batch is left unprocessed so a re-run retries all of it.
	ErrBatchIncomplete = errors.New("batch incomplete")

	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmptyEmbedding is returned when the embedder produced no vector for a record.
	ErrEmptyEmbedding = errors.New("empty embedding")
)
