package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docent/ai"
)

// Completer is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type Completer struct {
	// CompleteFunc is called by Complete if set.
	// If nil, a canned answer echoing the last user message is returned.
	CompleteFunc func(ctx context.Context, system string, messages []ai.Message, jsonMode bool) (string, error)

	mu        sync.Mutex
	callCount int
	lastSys   string
}

// NewCompleter creates a mock completer with default canned behavior.
// Returns the concrete type so tests can assert call counts.
func NewCompleter() *Completer {
	return &Completer{}
}

// Complete returns a canned answer referencing the last user message.
func (m *Completer) Complete(ctx context.Context, system string, messages []ai.Message, jsonMode bool) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastSys = system
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, messages, jsonMode)
	}

	question := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			question = messages[i].Content
			break
		}
	}
	if jsonMode {
		return `{"answer":"mock"}`, nil
	}
	return "Mock answer to: " + question, nil
}

// CallCount returns the number of times Complete was called.
func (m *Completer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastSystemPrompt returns the system prompt from the most recent call,
// so tests can assert the assembled context reached the model.
func (m *Completer) LastSystemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSys
}

// Reset clears the call count and custom functions.
func (m *Completer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastSys = ""
	m.CompleteFunc = nil
}
