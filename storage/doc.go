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

// Package storage provides the storage abstraction layer for pocketkb.
//
// This package defines repository interfaces that decouple the ingestion,
// deduplication and search code from the storage engine. The only engine
// shipped is BadgerDB (storage/badger).
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the interfaces defined
// here so consumers never couple to backend specifics:
//
//	repo, err := badger.NewKnowledgeRepository(backend)  // storage.KnowledgeRepository
//
// Internal helpers may return concrete types.
//
// # Architecture
//
//   - Repository: operations shared by every record repository
//   - KnowledgeRepository: knowledge records, the link index and link grouping
//   - BatchRepository: persisted ingestion batch states
//
// # Identity
//
// A record's Link is its identity for deduplication. Storing the same logical
// record twice is allowed; it produces two records sharing one link, which the
// dedup package later collapses.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewKnowledgeRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Tests use in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
