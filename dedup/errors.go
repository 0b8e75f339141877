package dedup

import "errors"

var (
	// ErrKnowledgeRepositoryRequired is returned when a knowledge repository is not provided.
	ErrKnowledgeRepositoryRequired = errors.New("knowledge repository required")

	// ErrGroupCleanup wraps the failure to delete the duplicates of one link.
	ErrGroupCleanup = errors.New("duplicate group cleanup failed")
)
