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

import "errors"

// Domain validation errors
var (
	// ErrInvalidKnowledgeRecord indicates a KnowledgeRecord failed validation.
	ErrInvalidKnowledgeRecord = errors.New("invalid knowledge record")

	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyLink indicates the Link field is empty.
	ErrEmptyLink = errors.New("link cannot be empty")

	// ErrInvalidSourceKind indicates an unknown SourceKind value.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrEmptyMessageID indicates a message without an id.
	ErrEmptyMessageID = errors.New("message id cannot be empty")

	// ErrMalformedEncoding indicates a serialized value with an impossible length prefix.
	ErrMalformedEncoding = errors.New("malformed encoding")
)
