package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned by RetryWithBackoff for a budget below one.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbeddingCountMismatch means a batch came back with fewer or more
	// vectors than texts sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid reembed config")
)
