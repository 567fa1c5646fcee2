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

package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStructuredMarkers(t *testing.T) {
	t.Run("day markers start new pieces", func(t *testing.T) {
		text := "Day 1\n" + strings.Repeat("morning at the palace. ", 10) +
			"\nDay 2\n" + strings.Repeat("evening market. ", 10)
		pieces, err := SplitStructured(text, Options{ChunkSize: 2000, Overlap: 100})
		require.NoError(t, err)
		require.Len(t, pieces, 2)
		assert.True(t, strings.HasPrefix(pieces[0].Text, "Day 1"))
		assert.True(t, strings.HasPrefix(pieces[1].Text, "Day 2"))
	})

	t.Run("spanish day markers", func(t *testing.T) {
		text := "Día 1\nllegada a Bangkok.\nDía 2\nmercado flotante."
		pieces, err := SplitStructured(text, Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 2)
		assert.True(t, strings.HasPrefix(pieces[1].Text, "Día 2"))
	})

	t.Run("markdown headers and numbered sections", func(t *testing.T) {
		text := "## Itinerary\nsome intro text.\n1. Flights\nTG-910 details.\n2. Hotels\nriver view."
		pieces, err := SplitStructured(text, Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 3)
		assert.True(t, strings.HasPrefix(pieces[0].Text, "## Itinerary"))
		assert.True(t, strings.HasPrefix(pieces[1].Text, "1. Flights"))
		assert.True(t, strings.HasPrefix(pieces[2].Text, "2. Hotels"))
	})

	t.Run("date lines start new pieces", func(t *testing.T) {
		text := "12/03/2025\ncheck in at noon.\n13/03/2025\ncheck out."
		pieces, err := SplitStructured(text, Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 2)
	})
}

func TestSplitStructuredTables(t *testing.T) {
	t.Run("pipe tables become dedicated pieces", func(t *testing.T) {
		text := "Hotel options below.\n" +
			"| Hotel | Price |\n" +
			"| Mandarin | $420 |\n" +
			"| Shangri-La | $310 |\n" +
			"We picked the second one."
		pieces, err := SplitStructured(text, Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 3)
		assert.False(t, pieces[0].Table)
		assert.True(t, pieces[1].Table)
		assert.Contains(t, pieces[1].Text, "Mandarin")
		assert.Contains(t, pieces[1].Text, "Shangri-La")
		assert.False(t, pieces[2].Table)
	})

	t.Run("tab-delimited lines count as tables", func(t *testing.T) {
		text := "Flights:\nTG-910\t08:40\tBKK\nTG-917\t19:05\tCNX\ndone."
		pieces, err := SplitStructured(text, Options{})
		require.NoError(t, err)
		require.Len(t, pieces, 3)
		assert.True(t, pieces[1].Table)
	})

	t.Run("long table rows split without sentence snapping", func(t *testing.T) {
		var rows []string
		for i := 0; i < 60; i++ {
			rows = append(rows, "| row. data | more. data | yet. more |")
		}
		text := strings.Join(rows, "\n")
		pieces, err := SplitStructured(text, Options{ChunkSize: 400, Overlap: 50})
		require.NoError(t, err)
		require.True(t, len(pieces) > 1)
		for i, p := range pieces {
			assert.True(t, p.Table, "piece %d should be a table piece", i)
			// windows stay full width because snapping is disabled
			if i < len(pieces)-1 {
				assert.Equal(t, 400, p.End-p.Start)
			}
		}
	})
}

func TestSplitStructuredCoverage(t *testing.T) {
	text := "## Plan\n" +
		strings.Repeat("visit temples and markets. ", 50) +
		"\nDay 2\n" +
		"| a | b |\n| c | d |\n" +
		strings.Repeat("shopping and street food. ", 50)

	pieces, err := SplitStructured(text, Options{ChunkSize: 300, Overlap: 60})
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	normalized := Normalize(text)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, len(normalized), pieces[len(pieces)-1].End)
	for _, p := range pieces {
		assert.Equal(t, normalized[p.Start:p.End], p.Text)
	}
	// pieces never move backward
	for i := 0; i < len(pieces)-1; i++ {
		assert.LessOrEqual(t, pieces[i].Start, pieces[i+1].Start)
	}
}
