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

package storage

import "errors"

var (
	// ErrNotFound is returned when a record id is unknown.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed is returned by any call after the backend was closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for a similarity query without a vector.
	ErrInvalidQuery = errors.New("invalid similarity query")

	// ErrSerializationFailed wraps encoding and decoding failures of stored values.
	ErrSerializationFailed = errors.New("stored value could not be encoded or decoded")

	// ErrTruncatedData is returned when a stored key or value is shorter than its encoding.
	ErrTruncatedData = errors.New("stored data truncated")
)
