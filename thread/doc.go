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

// Package thread rebuilds conversation threads from a flat list of chat messages.
//
// Messages reference their parent only by id and may arrive from several
// overlapping exports in any order. Reconstruct groups every reply under the
// root message its reference chain leads to, flattening multi-level chains
// into one ordered child list:
//
//	R <- A <- B <- C   becomes   R: [A, B, C]
//
// # Pipeline
//
//   - Classify splits messages into roots, replies and everything else
//   - Reconstruct builds the Forest of threads plus the orphaned replies
//   - Compact turns one thread into embeddable text and metadata
//   - Record and Records turn threads into knowledge records
//
// # Ordering
//
// Children are sorted by timestamp, oldest first. Children whose timestamp
// does not parse are kept and placed after all parseable ones, in the order
// they were attached. Roots are reported in first-seen order.
//
// # Duplicate Roots
//
// When the same root id appears more than once (overlapping exports), the
// thread keeps the position of the first occurrence and the content of the
// last. Use DedupeMessages first for canonical input.
//
// All functions are pure and safe for concurrent use on distinct inputs.
package thread
