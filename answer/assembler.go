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
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
)

const (
	// DefaultMaxChunkChars caps a single chunk's contribution.
	DefaultMaxChunkChars = 1200

	// DefaultMaxTotalChars caps the whole assembled context.
	DefaultMaxTotalChars = 6000
)

// ErrInvalidLimits is returned for negative character limits.
var ErrInvalidLimits = errors.New("character limits must not be negative")

// Context is the assembled, size-bounded context window.
type Context struct {
	// Text is the concatenated source blocks, len(Text) <= maxTotalChars.
	Text string

	// Included is how many results made it into Text.
	Included int

	// Dropped is how many trailing results did not fit.
	Dropped int
}

// Assemble renders ranked results into source-attributed context blocks,
// in ranking order, accumulating while the next block still fits within
// maxTotalChars. Zero limits fall back to the defaults. The output is
// deterministic for identical input.
//
// Each block looks like:
//
//	[Source: Thailand Trip, hybrid, relevance=87%]
//	Entities: bangkok, floating_market
//	Day 2: visit the floating market...
//
// The Entities line is omitted when the result matched no entities.
func Assemble(results []*core.RankedChunk, maxChunkChars, maxTotalChars int) (Context, error) {
	if maxChunkChars < 0 || maxTotalChars < 0 {
		return Context{}, ErrInvalidLimits
	}
	if maxChunkChars == 0 {
		maxChunkChars = DefaultMaxChunkChars
	}
	if maxTotalChars == 0 {
		maxTotalChars = DefaultMaxTotalChars
	}

	var b strings.Builder
	included := 0
	for _, result := range results {
		if result == nil || result.Chunk == nil {
			continue
		}
		block := renderBlock(result, maxChunkChars)

		needed := len(block)
		if included > 0 {
			needed += 2 // separating blank line
		}
		if b.Len()+needed > maxTotalChars {
			break
		}
		if included > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		included++
	}

	return Context{
		Text:     b.String(),
		Included: included,
		Dropped:  len(results) - included,
	}, nil
}

func renderBlock(result *core.RankedChunk, maxChunkChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Source: %s, %s, relevance=%d%%]\n",
		result.Chunk.DocumentName, result.Source, int(result.Score*100+0.5))
	if len(result.Entities) > 0 {
		fmt.Fprintf(&b, "Entities: %s\n", strings.Join(result.Entities, ", "))
	}
	b.WriteString(truncate(result.Chunk.Text, maxChunkChars))
	return b.String()
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
