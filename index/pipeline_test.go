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


package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/chunk"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noRetry keeps failure tests fast.
func noRetry() ai.Policy {
	return ai.BackoffPolicy(1, 0, 0)
}

func newTestPipeline(t *testing.T, provider ai.Provider, opts ...Option) (*Pipeline, storage.VectorStore, storage.GraphStore) {
	t.Helper()
	vectors, graph, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	base := []Option{WithChunkDelay(0), WithRetryPolicy(noRetry())}
	p, err := NewPipeline(vectors, graph, provider, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, vectors, graph
}

func TestNewPipelineValidation(t *testing.T) {
	vectors, graph, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	provider := mock.NewProvider()

	_, err = NewPipeline(nil, graph, provider)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
	_, err = NewPipeline(vectors, nil, provider)
	assert.ErrorIs(t, err, ErrGraphStoreRequired)
	_, err = NewPipeline(vectors, graph, nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestIndexDocument(t *testing.T) {
	provider := mock.NewProvider()
	p, vectors, graph := newTestPipeline(t, provider)
	ctx := context.Background()

	doc := &core.Document{
		Id:   "trip",
		Name: "Thailand Trip",
		Text: "Day 1: arrive in Bangkok. Day 2: visit the Floating Market near Bangkok.",
	}
	stats, err := p.IndexDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksCreated)
	assert.Positive(t, stats.EntitiesExtracted)

	t.Run("chunks are vector-searchable", func(t *testing.T) {
		query := mock.DeterministicVector(chunk.Normalize(doc.Text), 384)
		results, err := vectors.Search(ctx, query, 10, 0.0)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "trip", results[0].Chunk.DocumentID)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	})

	t.Run("entities reach the graph", func(t *testing.T) {
		results, err := graph.SearchByEntities(ctx, []string{"Bangkok"}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "trip", results[0].Chunk.DocumentID)
	})

	t.Run("chunk metadata carries normalized entity names", func(t *testing.T) {
		results, err := graph.SearchByEntities(ctx, []string{"Bangkok"}, 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Contains(t, results[0].Chunk.Metadata.Entities, "bangkok")
	})
}

func TestIndexDocumentValidation(t *testing.T) {
	p, _, _ := newTestPipeline(t, mock.NewProvider())
	ctx := context.Background()

	_, err := p.IndexDocument(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	_, err = p.IndexDocument(ctx, &core.Document{Id: "", Text: "text"})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	_, err = p.IndexDocument(ctx, &core.Document{Id: "x", Text: "   "})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestIndexDocumentEmbeddingFailureIsolated(t *testing.T) {
	provider := mock.NewProvider().(*mock.Provider)
	provider.MockEmbedder().EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "Chiang Mai") {
			return nil, errors.New("model server hiccup")
		}
		return mock.DeterministicVector(text, 384), nil
	}

	p, vectors, _ := newTestPipeline(t, provider,
		WithChunkOptions(chunk.Options{ChunkSize: 60, Overlap: 10}))
	ctx := context.Background()

	doc := &core.Document{
		Id: "trip",
		Text: "First we spend two full days exploring temples in Bangkok. " +
			"Then we take the night train north to sleepy Chiang Mai. " +
			"Finally we fly back south for the beaches of Phuket island.",
	}
	stats, err := p.IndexDocument(ctx, doc)
	require.NoError(t, err)
	require.Greater(t, stats.ChunksCreated, 1)

	// failed chunk stored without a vector but still text-searchable
	results, err := vectors.SearchText(ctx, "Chiang Mai", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Empty(t, results[0].Chunk.Embedding)

	// the other chunks kept their vectors
	has, err := vectors.HasEmbeddings(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestIndexDocumentExtractionFailureIsolated(t *testing.T) {
	provider := mock.NewProvider().(*mock.Provider)
	provider.MockExtractor().ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return nil, errors.New("model returned garbage")
	}

	p, vectors, graph := newTestPipeline(t, provider)
	ctx := context.Background()

	stats, err := p.IndexDocument(ctx, &core.Document{Id: "trip", Text: "Bangkok at dawn."})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntitiesExtracted)

	// still embedded and searchable
	query := mock.DeterministicVector("Bangkok at dawn.", 384)
	results, err := vectors.Search(ctx, query, 10, 0.0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	// but invisible to the graph
	graphResults, err := graph.SearchByEntities(ctx, []string{"Bangkok"}, 10)
	require.NoError(t, err)
	assert.Empty(t, graphResults)
}

func TestEntityChunkLimit(t *testing.T) {
	provider := mock.NewProvider().(*mock.Provider)
	p, _, _ := newTestPipeline(t, provider,
		WithChunkOptions(chunk.Options{ChunkSize: 60, Overlap: 10}),
		WithEntityChunkLimit(1))
	ctx := context.Background()

	doc := &core.Document{
		Id: "trip",
		Text: "First we spend two full days exploring temples in Bangkok. " +
			"Then we take the night train north to sleepy Chiang Mai. " +
			"Finally we fly back south for the beaches of Phuket island.",
	}
	stats, err := p.IndexDocument(ctx, doc)
	require.NoError(t, err)
	require.Greater(t, stats.ChunksCreated, 1)

	assert.Equal(t, 1, provider.MockExtractor().CallCount())
}

func TestReindexShrinkingDocument(t *testing.T) {
	p, vectors, graph := newTestPipeline(t, mock.NewProvider(),
		WithChunkOptions(chunk.Options{ChunkSize: 60, Overlap: 10}))
	ctx := context.Background()

	_, err := p.IndexDocument(ctx, &core.Document{
		Id: "trip",
		Text: "First we spend two full days exploring temples in Bangkok. " +
			"Then we take the night train north to sleepy Chiang Mai. " +
			"Finally we fly back south for the beaches of Phuket island.",
	})
	require.NoError(t, err)

	// re-index the same id with far fewer chunks
	stats, err := p.IndexDocument(ctx, &core.Document{Id: "trip", Text: "Only Paris now."})
	require.NoError(t, err)
	require.Equal(t, 1, stats.ChunksCreated)

	t.Run("old tail chunks are gone from the vector store", func(t *testing.T) {
		results, err := vectors.SearchText(ctx, "Phuket", 10)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = vectors.SearchText(ctx, "Bangkok temples", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("only the new version is searchable", func(t *testing.T) {
		results, err := vectors.SearchText(ctx, "Paris", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Only Paris now.", results[0].Chunk.Text)
	})

	t.Run("vector and graph stores agree on chunk count", func(t *testing.T) {
		infos, err := graph.Documents(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 1, infos[0].ChunkCount)
	})
}

func TestIndexBatchAccumulates(t *testing.T) {
	p, _, graph := newTestPipeline(t, mock.NewProvider())
	ctx := context.Background()

	stats, err := p.IndexBatch(ctx, []*core.Document{
		{Id: "a", Text: "Bangkok notes."},
		{Id: "b", Text: "Phuket notes."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunksCreated)

	infos, err := graph.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestRemoveDocument(t *testing.T) {
	p, vectors, graph := newTestPipeline(t, mock.NewProvider())
	ctx := context.Background()

	_, err := p.IndexDocument(ctx, &core.Document{Id: "trip", Text: "Bangkok at dawn."})
	require.NoError(t, err)
	require.NoError(t, p.RemoveDocument(ctx, "trip"))

	_, err = vectors.Search(ctx, mock.DeterministicVector("Bangkok at dawn.", 384), 10, 0.0)
	assert.ErrorIs(t, err, storage.ErrNoEmbeddings)

	results, err := graph.SearchByEntities(ctx, []string{"Bangkok"}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
