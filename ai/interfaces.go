package ai

import "context"

// Embedder turns record content and search queries into vectors.
// Implementations are called from several ingestion workers at once and must
// be safe for concurrent use.
type Embedder interface {
	// EmbedText returns the vector for one text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts returns one vector per text, in input order. A partial
	// answer is an error.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider owns the embedding client for the lifetime of a knowledge base.
type AIProvider interface {
	Embedder() Embedder

	// Close releases the client. The embedder must not be used afterwards.
	Close() error
}
