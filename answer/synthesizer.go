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


package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// Fixed responses for the two states where no model answer exists.
const (
	// NoInformationMessage is returned when retrieval found nothing.
	NoInformationMessage = "I could not find relevant information in your documents to answer that."

	// GenerationFailedMessage is returned when the completion call failed.
	GenerationFailedMessage = "Sorry, I was unable to generate an answer right now. Please try again."
)

// ErrCompleterRequired is returned when a completer is not provided.
var ErrCompleterRequired = errors.New("completer required")

const answerPromptTemplate = `You are a precise assistant answering questions about the user's documents.

Use ONLY the context below to answer. Each context block starts with a
[Source: ...] line naming the document it came from.

Rules:
- Answer the question directly using the context. Do not invent facts.
- Cite the source document name when a fact comes from a specific block.
- If the context does not contain the answer, say so plainly.
- %s

Context:
%s`

// buildAnswerPrompt creates the answer-generation system prompt for the
// given context and response language. An empty language means the model
// should answer in the language of the question.
func buildAnswerPrompt(contextText, language string) string {
	instruction := "Respond in the same language as the question."
	if language != "" {
		instruction = fmt.Sprintf("Respond in %s.", language)
	}
	return fmt.Sprintf(answerPromptTemplate, instruction, contextText)
}

// Synthesizer generates cited answers from ranked retrieval results.
type Synthesizer struct {
	completer     ai.Completer
	maxChunkChars int
	maxTotalChars int
	logger        *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithContextLimits overrides the context assembly character limits.
func WithContextLimits(maxChunkChars, maxTotalChars int) SynthesizerOption {
	return func(s *Synthesizer) {
		if maxChunkChars > 0 {
			s.maxChunkChars = maxChunkChars
		}
		if maxTotalChars > 0 {
			s.maxTotalChars = maxTotalChars
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynthesizer creates a new answer synthesizer.
func NewSynthesizer(completer ai.Completer, opts ...SynthesizerOption) (*Synthesizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	s := &Synthesizer{
		completer:     completer,
		maxChunkChars: DefaultMaxChunkChars,
		maxTotalChars: DefaultMaxTotalChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Answer generates a natural language answer to the question from the
// ranked results, continuing the given conversation history. It always
// returns text: empty results yield the fixed no-information message
// and a failed completion yields a generic apology, never an error.
func (s *Synthesizer) Answer(
	ctx context.Context,
	question string,
	history []ai.Message,
	language string,
	results []*core.RankedChunk,
) string {
	if len(results) == 0 {
		return NoInformationMessage
	}

	assembled, err := Assemble(results, s.maxChunkChars, s.maxTotalChars)
	if err != nil || assembled.Included == 0 {
		s.logger.Warn("context assembly produced nothing", "results", len(results), "err", err)
		return NoInformationMessage
	}
	if assembled.Dropped > 0 {
		s.logger.Debug("context window full", "included", assembled.Included, "dropped", assembled.Dropped)
	}

	system := buildAnswerPrompt(assembled.Text, language)
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.Message{Role: "user", Content: question})

	text, err := s.completer.Complete(ctx, system, messages, false)
	if err != nil {
		s.logger.Error("answer generation failed", "err", err)
		return GenerationFailedMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return GenerationFailedMessage
	}
	return text
}
