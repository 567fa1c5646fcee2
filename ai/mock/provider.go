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


package mock

import "github.com/poiesic/docent/ai"

// Provider is a test double for ai.Provider.
// It aggregates mock embedder, extractor and completer instances.
type Provider struct {
	embedder  *Embedder
	extractor *EntityExtractor
	completer *Completer
}

// NewProvider creates a new mock provider with default mock services.
//
// Returns ai.Provider interface for consistency with production
// constructors. Use MockEmbedder()/MockExtractor()/MockCompleter() to
// access concrete types for test assertions.
func NewProvider() ai.Provider {
	return &Provider{
		embedder:  NewEmbedder(),
		extractor: NewEntityExtractor(),
		completer: NewCompleter(),
	}
}

// NewProviderWithServices creates a mock provider with custom mock
// services, giving full control over the behavior of each.
func NewProviderWithServices(embedder *Embedder, extractor *EntityExtractor, completer *Completer) ai.Provider {
	return &Provider{
		embedder:  embedder,
		extractor: extractor,
		completer: completer,
	}
}

// Embedder returns the mock embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// EntityExtractor returns the mock entity extractor.
func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Completer returns the mock completer.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close is a no-op for the mock provider.
func (p *Provider) Close() error {
	return nil
}

// MockEmbedder returns the underlying mock embedder for test assertions.
func (p *Provider) MockEmbedder() *Embedder {
	return p.embedder
}

// MockExtractor returns the underlying mock extractor for test assertions.
func (p *Provider) MockExtractor() *EntityExtractor {
	return p.extractor
}

// MockCompleter returns the underlying mock completer for test assertions.
func (p *Provider) MockCompleter() *Completer {
	return p.completer
}
