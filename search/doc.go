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

// Package search provides semantic search over stored knowledge records.
//
// A query is embedded, normalized to match the stored unit vectors and
// compared against every record by dot product. Results below the minimum
// similarity are dropped, an optional source-kind filter is applied and the
// remainder is ranked. Records containing every significant query word
// (stop words removed) get a fixed boost so exact keyword hits rank above
// merely similar text.
package search
