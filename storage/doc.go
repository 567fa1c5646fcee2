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


// Package storage provides the storage abstraction layer for docent.
//
// Two store interfaces decouple retrieval from persistence:
//
//   - VectorStore: chunks ranked by embedding similarity, with a plain
//     text-match fallback for chunks that never got a vector
//   - GraphStore: the document/chunk/entity graph, answering
//     entity-anchored search, neighbor expansion, and document relations
//
// Both are implemented in-process by the badger sub-package; the
// pgvector sub-package provides an alternative VectorStore backed by
// PostgreSQL for installations that already run one.
//
// # Constructor Return Type Pattern
//
// Public constructors return interface types to enforce abstraction:
//
//	vectors, err := badger.NewVectorStore(backend)  // returns storage.VectorStore
//
// Internal constructors may return concrete types since they are only
// used within the implementation package.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines. The search orchestrator queries the
// vector and graph stores concurrently.
package storage
