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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible
// chat APIs.
type EntityExtractor struct {
	client       llms.Model
	maxEntities  int
	excerptChars int
	logger       *slog.Logger
}

// entity matches the JSON structure requested from the model.
type entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// extraction is the wrapper structure for the model's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

// newEntityExtractor is an internal constructor that returns the concrete
// type. Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that
	// don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityExtractor{
		client:       client,
		maxEntities:  config.MaxEntities,
		excerptChars: config.ExcerptChars,
		logger:       slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewEntityExtractor creates a new entity extractor using the provided
// configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// ExtractEntities extracts named entities from text using the chat model.
// A malformed model response yields an empty slice; only transport
// failures are reported as errors.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	text = excerpt(text, e.excerptChars)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildExtractionPrompt(e.maxEntities)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		e.logger.Error("failed to generate content", "err", err)
		return nil, classify("extract", err)
	}

	if len(response.Choices) < 1 {
		e.logger.Debug("no choices returned from model")
		return []ai.ExtractedEntity{}, nil
	}

	return e.parseResponse(response.Choices[0].Content), nil
}

// parseResponse decodes the model output. The parse path never errors:
// anything unusable becomes an empty result.
func (e *EntityExtractor) parseResponse(raw string) []ai.ExtractedEntity {
	cleaned := repairJSON(stripFences(raw))

	var result extraction
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		// some models emit the bare array despite the schema
		if arrErr := json.Unmarshal([]byte(cleaned), &result.Entities); arrErr != nil {
			e.logger.Warn("unparseable extractor response", "response", cleaned, "err", err)
			return []ai.ExtractedEntity{}
		}
	}

	extracted := make([]ai.ExtractedEntity, 0, len(result.Entities))
	for _, ent := range result.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			continue
		}
		extracted = append(extracted, ai.ExtractedEntity{
			Name: name,
			Type: coerceType(ent.Type),
		})
		if len(extracted) == e.maxEntities {
			break
		}
	}

	e.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"kept", len(extracted))
	return extracted
}

// coerceType maps whatever the model produced onto a known entity type.
func coerceType(t string) string {
	t = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(t), " ", "_"))
	if ai.ValidEntityType(t) {
		return t
	}
	return ai.TypeOther
}
