package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, IDFromContent("hello"), IDFromContent("hello"))
	})

	t.Run("distinct content gives distinct ids", func(t *testing.T) {
		assert.NotEqual(t, IDFromContent("hello"), IDFromContent("world"))
	})

	t.Run("empty content is valid", func(t *testing.T) {
		assert.Equal(t, IDFromContent(""), IDFromContent(""))
	})
}

func TestChunkID(t *testing.T) {
	t.Run("derived from document and index", func(t *testing.T) {
		assert.Equal(t, ChunkID("doc-1", 0), ChunkID("doc-1", 0))
		assert.NotEqual(t, ChunkID("doc-1", 0), ChunkID("doc-1", 1))
		assert.NotEqual(t, ChunkID("doc-1", 0), ChunkID("doc-2", 0))
	})

	t.Run("no collision between separator-like ids", func(t *testing.T) {
		// "a#1" index 0 vs "a" index 10 must not collide
		assert.NotEqual(t, ChunkID("a#1", 0), ChunkID("a", 10))
	})
}

func TestEntityID(t *testing.T) {
	assert.Equal(t, EntityID("bangkok"), EntityID("bangkok"))
	assert.NotEqual(t, EntityID("bangkok"), EntityID("paris"))
	// entity ids live in a different namespace than content ids
	assert.NotEqual(t, EntityID("bangkok"), IDFromContent("bangkok"))
}
