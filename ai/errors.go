package ai

import "errors"

var (
	// ErrMissingAPIKey indicates no API key was configured for the embedding service.
	ErrMissingAPIKey = errors.New("ai config: API key is required")

	// ErrInvalidConfig indicates an incomplete or inconsistent configuration.
	ErrInvalidConfig = errors.New("ai config: invalid configuration")
)
