package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		err := ValidateDocument(&Document{Id: "doc-1", Name: "Trip", Text: "Day 1: Bangkok"})
		assert.NoError(t, err)
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("empty id", func(t *testing.T) {
		err := ValidateDocument(&Document{Text: "content"})
		assert.ErrorIs(t, err, ErrEmptyDocumentID)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		err := ValidateDocument(&Document{Id: "doc-1", Text: "   \n\t "})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestValidateChunk(t *testing.T) {
	t.Run("valid chunk", func(t *testing.T) {
		err := ValidateChunk(&Chunk{DocumentID: "doc-1", ChunkIndex: 0, Text: "hello"})
		assert.NoError(t, err)
	})

	t.Run("nil chunk", func(t *testing.T) {
		assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
	})

	t.Run("negative index", func(t *testing.T) {
		err := ValidateChunk(&Chunk{DocumentID: "doc-1", ChunkIndex: -1, Text: "hello"})
		assert.ErrorIs(t, err, ErrNegativeChunkIndex)
	})

	t.Run("empty embedding is allowed", func(t *testing.T) {
		err := ValidateChunk(&Chunk{DocumentID: "doc-1", ChunkIndex: 3, Text: "hello", Embedding: nil})
		assert.NoError(t, err)
	})
}

func TestNormalizeEntityName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Bangkok", "bangkok"},
		{"spaces collapse to underscore", "Grand Palace", "grand_palace"},
		{"punctuation runs collapse once", "Chiang  Mai!!!Night Market", "chiang_mai_night_market"},
		{"keeps digits and hyphens", "Flight TG-910", "flight_tg-910"},
		{"trims edge underscores", "  ¿Bangkok?  ", "bangkok"},
		{"unicode collapses", "Café de París", "caf_de_par_s"},
		{"empty input", "", ""},
		{"symbols only", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEntityName(tt.in))
		})
	}

	t.Run("caps length", func(t *testing.T) {
		long := strings.Repeat("a", 200)
		got := NormalizeEntityName(long)
		assert.Len(t, got, 64)
	})

	t.Run("identity is the normalized form", func(t *testing.T) {
		assert.Equal(t, NormalizeEntityName("BANGKOK"), NormalizeEntityName("bangkok"))
	})
}
