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


package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuery = "What to do in Bangkok?"

func newTestStores(t *testing.T) (storage.VectorStore, storage.GraphStore) {
	t.Helper()
	vectors, graph, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return vectors, graph
}

// seedTrip indexes one document whose first chunk embeds exactly like
// testQuery and mentions Bangkok, so it is reachable by both branches.
func seedTrip(t *testing.T, vectors storage.VectorStore, graph storage.GraphStore) {
	t.Helper()
	ctx := context.Background()

	chunks := []*core.Chunk{
		{
			Id: core.ChunkID("trip", 0), DocumentID: "trip", DocumentName: "Thailand Trip",
			ChunkIndex: 0, Text: "Day 1: temples and street food in Bangkok",
			Embedding: mock.DeterministicVector(testQuery, 384),
		},
		{
			Id: core.ChunkID("trip", 1), DocumentID: "trip", DocumentName: "Thailand Trip",
			ChunkIndex: 1, Text: "Day 2: night train to Chiang Mai",
			Embedding: mock.DeterministicVector("something unrelated entirely", 384),
		},
	}
	require.NoError(t, vectors.AddChunks(ctx, chunks...))

	doc := &core.Document{Id: "trip", Name: "Thailand Trip", Text: "trip notes"}
	entities := [][]core.EntityRef{
		{{Name: "Bangkok", Type: ai.TypeLocation}},
		{{Name: "Chiang Mai", Type: ai.TypeLocation}},
	}
	require.NoError(t, graph.AddDocument(ctx, doc, chunks, entities))
}

func TestNewSearcherValidation(t *testing.T) {
	vectors, graph := newTestStores(t)
	provider := mock.NewProvider()

	_, err := NewSearcher(nil, graph, provider)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
	_, err = NewSearcher(vectors, nil, provider)
	assert.ErrorIs(t, err, ErrGraphStoreRequired)
	_, err = NewSearcher(vectors, graph, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestSearchHybrid(t *testing.T) {
	vectors, graph := newTestStores(t)
	seedTrip(t, vectors, graph)

	s, err := NewSearcher(vectors, graph, mock.NewProvider())
	require.NoError(t, err)

	results, err := s.Search(context.Background(), testQuery, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// chunk 0 is found by both branches: vector score 1.0 stays capped,
	// provenance flips to hybrid and the entity list survives fusion
	top := results[0]
	assert.Equal(t, 0, top.Chunk.ChunkIndex)
	assert.Equal(t, core.ProvenanceHybrid, top.Source)
	assert.InDelta(t, 1.0, float64(top.Score), 1e-5)
	assert.Contains(t, top.Entities, "bangkok")
}

func TestSearchDegradesWithoutEmbedding(t *testing.T) {
	vectors, graph := newTestStores(t)
	seedTrip(t, vectors, graph)

	provider := mock.NewProvider().(*mock.Provider)
	provider.MockEmbedder().EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedder down")
	}

	s, err := NewSearcher(vectors, graph, provider)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), testQuery, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, core.ProvenanceGraph, r.Source)
	}
}

func TestSearchDegradesWithoutEntities(t *testing.T) {
	vectors, graph := newTestStores(t)
	seedTrip(t, vectors, graph)

	provider := mock.NewProvider().(*mock.Provider)
	provider.MockExtractor().ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return nil, errors.New("extractor down")
	}

	s, err := NewSearcher(vectors, graph, provider)
	require.NoError(t, err)

	results, err := s.Search(context.Background(), testQuery, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, core.ProvenanceVector, results[0].Source)
}

func TestSearchTextFallback(t *testing.T) {
	vectors, graph := newTestStores(t)
	ctx := context.Background()

	// a chunk without an embedding, unreachable by either branch
	require.NoError(t, vectors.AddChunks(ctx, &core.Chunk{
		Id: core.ChunkID("trip", 0), DocumentID: "trip", DocumentName: "Thailand Trip",
		ChunkIndex: 0, Text: "street food in Bangkok",
	}))

	provider := mock.NewProvider().(*mock.Provider)
	provider.MockExtractor().ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return nil, nil
	}

	s, err := NewSearcher(vectors, graph, provider)
	require.NoError(t, err)

	results, err := s.Search(ctx, "Bangkok food", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, results[0].Score, float32(0.4))
}

func TestSearchNoResults(t *testing.T) {
	vectors, graph := newTestStores(t)

	s, err := NewSearcher(vectors, graph, mock.NewProvider())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "anything at all", 10)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearchEmptyQuery(t *testing.T) {
	vectors, graph := newTestStores(t)
	s, err := NewSearcher(vectors, graph, mock.NewProvider())
	require.NoError(t, err)

	_, err = s.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

// recordingMonitor captures hook invocations for assertions.
type recordingMonitor struct {
	stages []string
}

func (m *recordingMonitor) Start(_ string)                       { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterQueryAnalysis(_ int, _ []string) { m.stages = append(m.stages, "analysis") }
func (m *recordingMonitor) AfterVectorSearch(_ []*core.RankedChunk) {
	m.stages = append(m.stages, "vector")
}
func (m *recordingMonitor) AfterGraphSearch(_ []*core.RankedChunk) {
	m.stages = append(m.stages, "graph")
}
func (m *recordingMonitor) BranchFailed(branch string, _ error) {
	m.stages = append(m.stages, "failed:"+branch)
}
func (m *recordingMonitor) AfterFusion(_ []*core.RankedChunk)  { m.stages = append(m.stages, "fusion") }
func (m *recordingMonitor) TextFallback(_ []*core.RankedChunk) { m.stages = append(m.stages, "text") }
func (m *recordingMonitor) Finish(_ []*core.RankedChunk)       { m.stages = append(m.stages, "finish") }

func TestSearchMonitorStages(t *testing.T) {
	vectors, graph := newTestStores(t)
	seedTrip(t, vectors, graph)

	s, err := NewSearcher(vectors, graph, mock.NewProvider())
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	_, err = s.SearchWithMonitor(context.Background(), testQuery, 10, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "analysis", "vector", "graph", "fusion", "finish"}, monitor.stages)
}
