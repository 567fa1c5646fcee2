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
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultMinScore filters weak semantic matches.
	DefaultMinScore = 0.60

	// DefaultBranchTimeout bounds each retrieval branch independently of
	// the caller's deadline, so one stuck branch degrades the query
	// instead of hanging it.
	DefaultBranchTimeout = 10 * time.Second
)

// Searcher provides hybrid semantic and graph search over indexed documents.
type Searcher struct {
	vectors       storage.VectorStore
	graph         storage.GraphStore
	embedder      ai.Embedder
	extractor     ai.EntityExtractor
	minScore      float32
	branchTimeout time.Duration
	fusion        FusionConfig
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore sets the semantic similarity threshold.
func WithMinScore(minScore float32) Option {
	return func(s *Searcher) error {
		s.minScore = minScore
		return nil
	}
}

// WithBranchTimeout sets the per-branch retrieval timeout.
func WithBranchTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout > 0 {
			s.branchTimeout = timeout
		}
		return nil
	}
}

// WithFusionConfig overrides the fusion parameters.
func WithFusionConfig(cfg FusionConfig) Option {
	return func(s *Searcher) error {
		s.fusion = cfg
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	vectors storage.VectorStore,
	graph storage.GraphStore,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if graph == nil {
		return nil, ErrGraphStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		vectors:       vectors,
		graph:         graph,
		embedder:      provider.Embedder(),
		extractor:     provider.EntityExtractor(),
		minScore:      DefaultMinScore,
		branchTimeout: DefaultBranchTimeout,
		fusion:        DefaultFusionConfig(),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the hybrid query and returns up to topK ranked chunks.
// Returns ErrNoResults when nothing in the index matches on any path.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]*core.RankedChunk, error) {
	return s.SearchWithMonitor(ctx, query, topK, nil)
}

// SearchWithMonitor runs the hybrid query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, topK int, monitor SearchMonitor) ([]*core.RankedChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = 10
	}

	monitor.Start(query)

	embedding, entities := s.embedAndExtract(ctx, query)
	monitor.AfterQueryAnalysis(len(embedding), entities)
	if len(embedding) == 0 && len(entities) == 0 {
		// both analysis calls failed; the raw text is all we have
		return s.textFallback(ctx, query, topK, monitor)
	}

	vectorResults, graphResults := s.concurrentRetrieve(ctx, embedding, entities, topK, monitor)

	fused := Fuse(vectorResults, graphResults, s.fusion, topK)
	monitor.AfterFusion(fused)

	if len(fused) == 0 {
		return s.textFallback(ctx, query, topK, monitor)
	}

	monitor.Finish(fused)
	return fused, nil
}

// embedAndExtract runs the query's embedding and entity extraction
// concurrently. Either call may fail; the zero value shuts off the
// corresponding retrieval branch.
func (s *Searcher) embedAndExtract(ctx context.Context, query string) ([]float32, []string) {
	var (
		wg        sync.WaitGroup
		embedding []float32
		extracted []ai.ExtractedEntity
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		embedding, err = s.embedder.Embed(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, skipping semantic branch", "err", err)
			embedding = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		extracted, err = s.extractor.ExtractEntities(ctx, query)
		if err != nil {
			s.logger.Warn("query entity extraction failed, skipping graph branch", "err", err)
			extracted = nil
		}
	}()
	wg.Wait()

	names := make([]string, 0, len(extracted))
	for _, e := range extracted {
		if core.NormalizeEntityName(e.Name) == "" {
			continue
		}
		names = append(names, e.Name)
	}
	return embedding, names
}

// concurrentRetrieve runs the two retrieval branches in parallel, each
// under its own timeout. A failed branch yields nil and the query
// degrades to the surviving one.
func (s *Searcher) concurrentRetrieve(
	ctx context.Context,
	embedding []float32,
	entities []string,
	topK int,
	monitor SearchMonitor,
) (vectorResults, graphResults []*core.RankedChunk) {
	var wg sync.WaitGroup

	if len(embedding) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			results, err := s.vectors.Search(branchCtx, embedding, topK, s.minScore)
			if err != nil {
				if !errors.Is(err, storage.ErrNoEmbeddings) {
					s.logger.Warn("vector branch failed", "err", err)
					monitor.BranchFailed("vector", err)
				}
				return
			}
			vectorResults = results
		}()
	}

	if len(entities) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			results, err := s.graph.SearchByEntities(branchCtx, entities, topK)
			if err != nil {
				s.logger.Warn("graph branch failed", "err", err)
				monitor.BranchFailed("graph", err)
				return
			}
			graphResults = results
		}()
	}

	wg.Wait()
	monitor.AfterVectorSearch(vectorResults)
	monitor.AfterGraphSearch(graphResults)
	return vectorResults, graphResults
}

// textFallback is the last resort: plain keyword matching over chunk
// text. Still empty means the index genuinely holds nothing relevant.
func (s *Searcher) textFallback(ctx context.Context, query string, topK int, monitor SearchMonitor) ([]*core.RankedChunk, error) {
	results, err := s.vectors.SearchText(ctx, query, topK)
	if err != nil {
		s.logger.Error("text fallback failed", "err", err)
		return nil, err
	}
	monitor.TextFallback(results)
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	monitor.Finish(results)
	return results, nil
}
