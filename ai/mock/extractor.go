package mock

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/docent/ai"
)

// EntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type EntityExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, uses default capitalized-word extraction.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)

	mu        sync.Mutex
	callCount int
}

// NewEntityExtractor creates a mock extractor with default behavior.
// Returns the concrete type so tests can assert call counts.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{}
}

// ExtractEntities extracts simple mock entities from text.
// Default behavior: the first five distinct capitalized words become
// LOCATION entities, which is deterministic and good enough to drive
// graph-store tests.
func (m *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractEntitiesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	seen := make(map[string]bool)
	entities := make([]ai.ExtractedEntity, 0, 5)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" || seen[word] {
			continue
		}
		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		seen[word] = true
		entities = append(entities, ai.ExtractedEntity{Name: word, Type: ai.TypeLocation})
		if len(entities) == 5 {
			break
		}
	}
	return entities, nil
}

// CallCount returns the number of times ExtractEntities was called.
func (m *EntityExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *EntityExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractEntitiesFunc = nil
}
