package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBasics(t *testing.T) {
	t.Run("empty input yields no pieces", func(t *testing.T) {
		pieces, err := Split("", Options{})
		require.NoError(t, err)
		assert.Empty(t, pieces)

		pieces, err = Split("   \n\n\t  ", Options{})
		require.NoError(t, err)
		assert.Empty(t, pieces)
	})

	t.Run("short text is a single piece", func(t *testing.T) {
		pieces, err := Split("Day 1: arrive in Bangkok.", Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 1)
		assert.Equal(t, 0, pieces[0].Start)
		assert.Equal(t, len(pieces[0].Text), pieces[0].End)
	})

	t.Run("zero options mean the documented defaults", func(t *testing.T) {
		text := strings.Repeat("a", 2500)
		pieces, err := Split(text, Options{})
		require.NoError(t, err)
		withDefaults, err := Split(text, Options{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap})
		require.NoError(t, err)
		assert.Equal(t, withDefaults, pieces)
	})

	t.Run("overlap must be smaller than chunk size", func(t *testing.T) {
		_, err := Split("some text", Options{ChunkSize: 100, Overlap: 100})
		assert.ErrorIs(t, err, ErrOverlapTooLarge)

		_, err = Split("some text", Options{ChunkSize: 100, Overlap: 150})
		assert.ErrorIs(t, err, ErrOverlapTooLarge)
	})
}

func TestSplitWindowing(t *testing.T) {
	t.Run("2500 chars with defaults gives three pieces", func(t *testing.T) {
		// no sentence terminators, so the window never snaps
		text := strings.Repeat("a", 2500)
		pieces, err := Split(text, Options{ChunkSize: 1000, Overlap: 200})
		require.NoError(t, err)
		require.Len(t, pieces, 3)

		assert.Equal(t, 0, pieces[0].Start)
		assert.Equal(t, 1000, pieces[0].End)
		assert.Equal(t, 800, pieces[1].Start)
		assert.Equal(t, 1800, pieces[1].End)
		assert.Equal(t, 1600, pieces[2].Start)
		assert.Equal(t, 2500, pieces[2].End)
	})

	t.Run("consecutive pieces overlap and cover the text", func(t *testing.T) {
		text := strings.Repeat("travel notes and plans ", 300)
		pieces, err := Split(text, Options{ChunkSize: 500, Overlap: 100})
		require.NoError(t, err)
		require.NotEmpty(t, pieces)

		normalized := Normalize(text)
		assert.Equal(t, 0, pieces[0].Start)
		assert.Equal(t, len(normalized), pieces[len(pieces)-1].End)
		for i := 0; i < len(pieces)-1; i++ {
			assert.Less(t, pieces[i+1].Start, pieces[i].End,
				"piece %d must overlap piece %d", i+1, i)
		}
	})

	t.Run("spans index into the normalized text", func(t *testing.T) {
		text := "Day  1:\r\nBangkok.   " + strings.Repeat("More notes. ", 200)
		pieces, err := Split(text, Options{ChunkSize: 300, Overlap: 50})
		require.NoError(t, err)

		normalized := Normalize(text)
		for _, p := range pieces {
			assert.Equal(t, normalized[p.Start:p.End], p.Text)
		}
	})
}

func TestSplitSentenceSnapping(t *testing.T) {
	t.Run("window snaps back to a sentence boundary", func(t *testing.T) {
		// a period at position 90, window of 100: the first piece
		// should end just after the period instead of mid-word
		text := strings.Repeat("x", 89) + "." + strings.Repeat("y", 200)
		pieces, err := Split(text, Options{ChunkSize: 100, Overlap: 10})
		require.NoError(t, err)
		require.True(t, len(pieces) >= 2)
		assert.Equal(t, 90, pieces[0].End)
		assert.True(t, strings.HasSuffix(pieces[0].Text, "."))
	})

	t.Run("no snap when the boundary is too far back", func(t *testing.T) {
		// period at position 10 is outside ChunkSize/2 of the window end
		text := strings.Repeat("x", 9) + "." + strings.Repeat("y", 300)
		pieces, err := Split(text, Options{ChunkSize: 100, Overlap: 10})
		require.NoError(t, err)
		assert.Equal(t, 100, pieces[0].End)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf to lf", "a\r\nb", "a\nb"},
		{"bare cr to lf", "a\rb", "a\nb"},
		{"space runs collapse", "a    b", "a b"},
		{"tab survives mixed runs", "a \t b", "a\tb"},
		{"triple newline collapses to two", "a\n\n\n\nb", "a\n\nb"},
		{"trimmed", "  hello  \n", "hello"},
		{"unicode preserved", "Día 1: café", "Día 1: café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
