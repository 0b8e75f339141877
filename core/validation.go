// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"strings"
)

// ValidateKnowledgeRecord validates a KnowledgeRecord according to domain rules.
//
// Validation rules:
//   - Content must not be blank
//   - Link must not be empty
//   - Kind must be a known SourceKind
//
// NOT validated (populated by ingestion or optional):
//   - Vector (empty until embedded)
//   - SourceID, Meta
//   - ID (0 is valid before the record is stored)
func ValidateKnowledgeRecord(record *KnowledgeRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidKnowledgeRecord)
	}

	if strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeRecord, ErrEmptyContent)
	}

	if record.Link == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeRecord, ErrEmptyLink)
	}

	if err := ValidateSourceKind(record.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeRecord, err)
	}

	return nil
}

// ValidateMessage checks that a message can take part in thread reconstruction.
// Malformed timestamps and missing references are not errors; they are
// handled by reconstruction.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if msg.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyMessageID)
	}
	return nil
}

// ValidateSourceKind validates that a SourceKind has a known value.
func ValidateSourceKind(kind SourceKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSourceKind, string(kind))
	}
	return nil
}
