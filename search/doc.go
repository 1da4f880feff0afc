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


// Package search provides relevance search over ingested document chunks.
//
// The Searcher type combines:
//   - Semantic search using vector embeddings
//   - Tag filtering against the chunks' assigned tag sets
//   - Verbatim keyword matching with stop-word filtering
//
// Semantic similarity drives the ranking; a verbatim match of every
// query word adds a fixed boost on top.
package search
