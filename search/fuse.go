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
	"sort"

	"github.com/poiesic/docent/core"
)

// FusionConfig tunes how the vector and graph rankings are merged.
type FusionConfig struct {
	// HybridBoost is added to the score of a chunk found by both paths.
	HybridBoost float32

	// MaxScore caps the boosted score.
	MaxScore float32
}

// DefaultFusionConfig returns the standard fusion parameters.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{HybridBoost: 0.1, MaxScore: 1.0}
}

// chunkKey identifies a chunk across both result sets. Chunk ids would
// also work, but documents re-indexed under a new name keep their ids,
// so name+index is what a user actually sees as "the same chunk".
type chunkKey struct {
	documentName string
	chunkIndex   int
}

// Fuse merges the two rankings into one. Vector results seed the merged
// list in their returned order; each graph result either boosts its
// vector twin (same document name and chunk index) to hybrid provenance
// or is appended as a graph-only hit. The merged list is stable-sorted
// by score descending, so ties keep vector-then-graph insertion order,
// and truncated to topK.
//
// Fuse mutates the result structs it is given; callers pass freshly
// retrieved slices.
func Fuse(vectorResults, graphResults []*core.RankedChunk, cfg FusionConfig, topK int) []*core.RankedChunk {
	merged := make([]*core.RankedChunk, 0, len(vectorResults)+len(graphResults))
	byKey := make(map[chunkKey]*core.RankedChunk, len(vectorResults))

	for _, r := range vectorResults {
		merged = append(merged, r)
		byKey[chunkKey{r.Chunk.DocumentName, r.Chunk.ChunkIndex}] = r
	}

	for _, g := range graphResults {
		key := chunkKey{g.Chunk.DocumentName, g.Chunk.ChunkIndex}
		twin, ok := byKey[key]
		if !ok {
			merged = append(merged, g)
			byKey[key] = g
			continue
		}
		twin.Score += cfg.HybridBoost
		if twin.Score > cfg.MaxScore {
			twin.Score = cfg.MaxScore
		}
		twin.Source = core.ProvenanceHybrid
		twin.MatchCount = g.MatchCount
		twin.Entities = mergeNames(twin.Entities, g.Entities)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// mergeNames returns the sorted union of two name lists.
func mergeNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, lists := range [][]string{a, b} {
		for _, name := range lists {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			union = append(union, name)
		}
	}
	sort.Strings(union)
	return union
}
