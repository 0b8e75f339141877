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

import (
	"fmt"

	"github.com/poiesic/pocketkb/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty id", ErrTruncatedData)
	}
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return id, nil
}

// MarshalKnowledgeRecord serializes a KnowledgeRecord to bytes.
func MarshalKnowledgeRecord(record *core.KnowledgeRecord) []byte {
	buf := make([]byte, core.KnowledgeRecordMUS.Size(*record))
	core.KnowledgeRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalKnowledgeRecord deserializes a KnowledgeRecord from bytes.
func UnmarshalKnowledgeRecord(data []byte) (*core.KnowledgeRecord, error) {
	record, _, err := core.KnowledgeRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalBatchState serializes a BatchState to bytes.
func MarshalBatchState(state *core.BatchState) []byte {
	buf := make([]byte, core.BatchStateMUS.Size(*state))
	core.BatchStateMUS.Marshal(*state, buf)
	return buf
}

// UnmarshalBatchState deserializes a BatchState from bytes.
func UnmarshalBatchState(data []byte) (*core.BatchState, error) {
	state, _, err := core.BatchStateMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &state, nil
}
