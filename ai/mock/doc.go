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


// Package mock provides test doubles for the ai interfaces.
//
// The mocks have deterministic default behavior (hash-derived embeddings,
// capitalized-word entity extraction, canned completions) and allow
// custom behavior injection via function fields. Constructors return
// concrete types so tests can assert call counts and inject failures.
// All mocks are safe for concurrent use; the indexing pipeline calls
// embed and extract from different goroutines.
package mock
