package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunk := &core.Chunk{
		Id:           core.ChunkID("trip", 2),
		DocumentID:   "trip",
		DocumentName: "Thailand Trip",
		ChunkIndex:   2,
		Text:         "Day 3: fly to Chiang Mai, dinner at the night market.",
		Embedding:    []float32{0.25, -0.5, 0.125},
		Metadata: core.ChunkMetadata{
			StartChar: 1600,
			EndChar:   2500,
			WordCount: 11,
			Entities:  []string{"chiang_mai", "night_market"},
		},
		InsertedAt: now,
		UpdatedAt:  now,
	}

	got, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestChunkSerializationEmptyEmbedding(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunk := &core.Chunk{
		Id:         core.ChunkID("trip", 0),
		DocumentID: "trip",
		ChunkIndex: 0,
		Text:       "embedding failed for this one",
		InsertedAt: now,
		UpdatedAt:  now,
	}

	got, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Empty(t, got.Embedding)
	assert.Equal(t, chunk.Text, got.Text)
}

func TestEntitySerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entity := &core.Entity{
		Id:           core.EntityID("bangkok"),
		Name:         "bangkok",
		Type:         "LOCATION",
		MentionCount: 7,
		InsertedAt:   now,
		UpdatedAt:    now,
	}

	got, err := UnmarshalEntity(MarshalEntity(entity))
	require.NoError(t, err)
	assert.Equal(t, entity, got)
}

func TestDocumentInfoSerialization(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	info := &core.DocumentInfo{
		Id:         "trip",
		Name:       "Thailand Trip",
		Preview:    "Day 1: arrive in Bangkok...",
		ChunkCount: 12,
		CreatedAt:  now.Add(-time.Hour),
		InsertedAt: now,
	}

	got, err := UnmarshalDocumentInfo(MarshalDocumentInfo(info))
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestUnmarshalTruncatedData(t *testing.T) {
	data := MarshalChunk(&core.Chunk{
		Id: 1, DocumentID: "d", ChunkIndex: 0, Text: "hello world",
	})
	_, err := UnmarshalChunk(data[:len(data)/2])
	assert.Error(t, err)
}
