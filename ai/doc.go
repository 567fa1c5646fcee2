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


// Package ai provides abstractions for the AI services used in Docent.
//
// This package defines interfaces for text embeddings, entity extraction,
// and chat completion. The core pipeline and search code depend only on
// these abstractions, so providers can be swapped without touching the
// retrieval logic.
//
// Two implementation sub-packages exist:
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in implementation packages return interface types;
// mock constructors return concrete types so tests can inject behavior
// and assert call counts.
//
// Provider failures are reported as *ProviderError values carrying an
// error kind (auth, rate limit, timeout, other) and, for rate limits,
// the server's retry-after hint. The Retry helper in this package turns
// a Policy into bounded retries around any provider call.
package ai
