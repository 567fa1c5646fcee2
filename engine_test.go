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


package docent

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	vectors, graph, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	engine, err := New(vectors, graph, mock.NewProvider(),
		WithIndexOptions(index.WithChunkDelay(0)))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestEngineIndexAndQuery(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	stats, err := engine.Index(ctx, &core.Document{
		Id:   "trip",
		Name: "Thailand Trip",
		Text: "Day 1: arrive in Bangkok and eat street food near the hotel.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksCreated)
	assert.Positive(t, stats.EntitiesExtracted)

	// the mock extractor lifts "Bangkok" from the question, so the graph
	// branch reaches the chunk even though the embeddings differ
	result, err := engine.Query(ctx, "What happens in Bangkok?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	assert.Contains(t, result.FormattedContext, "[Source: Thailand Trip")
	assert.Positive(t, result.AverageScore)
}

func TestEngineQueryNoResults(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Query(context.Background(), "completely unknown topic", 5)
	assert.ErrorIs(t, err, search.ErrNoResults)
}

func TestEngineAnswer(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Index(ctx, &core.Document{
		Id:   "trip",
		Text: "Day 1: arrive in Bangkok and eat street food.",
	})
	require.NoError(t, err)

	result, err := engine.Answer(ctx, "What happens in Bangkok?", nil, "")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "What happens in Bangkok?")
	assert.Positive(t, result.Sources.GraphCount)
	assert.Contains(t, result.Sources.Entities, "bangkok")
	assert.Greater(t, result.ProcessingTime, time.Duration(0))
}

func TestEngineAnswerNothingIndexed(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Answer(context.Background(), "anything at all?", nil, "")
	require.NoError(t, err)
	assert.Equal(t, answer.NoInformationMessage, result.Text)
	assert.Zero(t, result.Sources.VectorCount)
	assert.Zero(t, result.Sources.GraphCount)
}

func TestEngineRemoveDocument(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Index(ctx, &core.Document{Id: "trip", Text: "Bangkok at dawn."})
	require.NoError(t, err)
	require.NoError(t, engine.RemoveDocument(ctx, "trip"))

	_, err = engine.Query(ctx, "What about Bangkok?", 5)
	assert.ErrorIs(t, err, search.ErrNoResults)

	infos, err := engine.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestEngineReindexReplaces(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Index(ctx, &core.Document{Id: "trip", Text: "Bangkok at dawn."})
	require.NoError(t, err)
	_, err = engine.Index(ctx, &core.Document{Id: "trip", Text: "Paris in spring."})
	require.NoError(t, err)

	infos, err := engine.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	result, err := engine.Query(ctx, "Tell me about Paris", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)

	_, err = engine.Query(ctx, "Tell me about Bangkok", 5)
	assert.ErrorIs(t, err, search.ErrNoResults)
}

func TestEngineRelatedDocuments(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Index(ctx, &core.Document{Id: "trip", Text: "Bangkok itinerary."})
	require.NoError(t, err)
	_, err = engine.Index(ctx, &core.Document{Id: "food", Text: "Bangkok street food notes."})
	require.NoError(t, err)

	relations, err := engine.RelatedDocuments(ctx, "trip")
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, "food", relations[0].DocumentID)
	assert.Equal(t, 1, relations[0].SharedEntities)
}
