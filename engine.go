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


package docent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
)

// Engine is the top-level facade: it owns the stores and the AI
// provider and exposes the document lifecycle (index, remove) and the
// retrieval surface (query, answer).
type Engine struct {
	backend  *badger.Backend // nil when the stores were injected
	vectors  storage.VectorStore
	graph    storage.GraphStore
	provider ai.Provider
	pipeline *index.Pipeline
	searcher *search.Searcher
	synth    *answer.Synthesizer
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	indexOptions  []index.Option
	searchOptions []search.Option
}

// WithAIConfig overrides the AI provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithIndexOptions passes options through to the indexing pipeline.
func WithIndexOptions(opts ...index.Option) EngineOption {
	return func(o *engineOptions) {
		o.indexOptions = append(o.indexOptions, opts...)
	}
}

// WithSearchOptions passes options through to the searcher.
func WithSearchOptions(opts ...search.Option) EngineOption {
	return func(o *engineOptions) {
		o.searchOptions = append(o.searchOptions, opts...)
	}
}

// Open creates an Engine backed by a BadgerDB at filePath and an
// OpenAI-compatible provider (a local model server by default).
func Open(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	vectors, err := badger.NewVectorStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	graph, err := badger.NewGraphStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	engine, err := New(vectors, graph, provider, opts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}
	engine.backend = backend
	return engine, nil
}

// New creates an Engine over caller-provided stores and provider. The
// caller keeps ownership of the backend behind the stores; Close only
// releases what the engine itself created.
func New(vectors storage.VectorStore, graph storage.GraphStore, provider ai.Provider, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(options)
	}

	pipeline, err := index.NewPipeline(vectors, graph, provider, options.indexOptions...)
	if err != nil {
		return nil, err
	}
	searcher, err := search.NewSearcher(vectors, graph, provider, options.searchOptions...)
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	synth, err := answer.NewSynthesizer(provider.Completer())
	if err != nil {
		pipeline.Release()
		return nil, err
	}

	return &Engine{
		vectors:  vectors,
		graph:    graph,
		provider: provider,
		pipeline: pipeline,
		searcher: searcher,
		synth:    synth,
		logger:   slog.Default(),
	}, nil
}

// IndexStats reports what one Index call added.
type IndexStats struct {
	ChunksCreated     int
	EntitiesExtracted int
}

// Index chunks, enriches, and stores the document. Re-indexing the same
// document id replaces the previous version.
func (e *Engine) Index(ctx context.Context, doc *core.Document) (*IndexStats, error) {
	stats, err := e.pipeline.IndexDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &IndexStats{
		ChunksCreated:     stats.ChunksCreated,
		EntitiesExtracted: stats.EntitiesExtracted,
	}, nil
}

// RemoveDocument deletes the document and its graph neighborhood.
func (e *Engine) RemoveDocument(ctx context.Context, documentID string) error {
	return e.pipeline.RemoveDocument(ctx, documentID)
}

// QueryResult is the retrieval output without answer synthesis.
type QueryResult struct {
	// Chunks are the fused results, best first.
	Chunks []*core.RankedChunk

	// FormattedContext is the assembled, source-attributed context.
	FormattedContext string

	// AverageScore is the mean relevance of the returned chunks.
	AverageScore float32
}

// Query runs the hybrid search and returns ranked chunks with an
// assembled context. Returns search.ErrNoResults when nothing matched.
func (e *Engine) Query(ctx context.Context, question string, topK int) (*QueryResult, error) {
	results, err := e.searcher.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	assembled, err := answer.Assemble(results, 0, 0)
	if err != nil {
		return nil, err
	}

	var total float32
	for _, r := range results {
		total += r.Score
	}
	avg := float32(0)
	if len(results) > 0 {
		avg = total / float32(len(results))
	}

	return &QueryResult{
		Chunks:           results,
		FormattedContext: assembled.Text,
		AverageScore:     avg,
	}, nil
}

// AnswerSources summarizes where an answer's evidence came from.
type AnswerSources struct {
	// VectorCount and GraphCount tally result provenance; hybrid
	// results count toward both.
	VectorCount int
	GraphCount  int

	// Entities are the matched entity names across all results.
	Entities []string
}

// AnswerResult is a synthesized answer with its evidence summary.
type AnswerResult struct {
	Text           string
	Sources        AnswerSources
	ProcessingTime time.Duration
}

// Answer runs the hybrid search and synthesizes a cited natural
// language answer. It degrades instead of failing: no matches yield the
// fixed no-information text and a completion failure yields an apology,
// so an error here means retrieval infrastructure broke.
func (e *Engine) Answer(ctx context.Context, question string, history []ai.Message, language string) (*AnswerResult, error) {
	started := time.Now()

	results, err := e.searcher.Search(ctx, question, 0)
	if err != nil && !errors.Is(err, search.ErrNoResults) {
		return nil, err
	}

	text := e.synth.Answer(ctx, question, history, language, results)

	sources := AnswerSources{Entities: []string{}}
	seen := make(map[string]bool)
	for _, r := range results {
		switch r.Source {
		case core.ProvenanceVector:
			sources.VectorCount++
		case core.ProvenanceGraph:
			sources.GraphCount++
		case core.ProvenanceHybrid:
			sources.VectorCount++
			sources.GraphCount++
		}
		for _, name := range r.Entities {
			if !seen[name] {
				seen[name] = true
				sources.Entities = append(sources.Entities, name)
			}
		}
	}

	return &AnswerResult{
		Text:           text,
		Sources:        sources,
		ProcessingTime: time.Since(started),
	}, nil
}

// Documents lists indexed documents, newest first.
func (e *Engine) Documents(ctx context.Context) ([]*core.DocumentInfo, error) {
	return e.graph.Documents(ctx)
}

// RelatedDocuments lists documents sharing entities with the given one.
func (e *Engine) RelatedDocuments(ctx context.Context, documentID string) ([]core.DocumentRelation, error) {
	return e.graph.RelatedDocuments(ctx, documentID)
}

// Close releases the pipeline, the provider, and, when the engine was
// created with Open, the stores and backend.
func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if e.backend == nil {
		return nil
	}
	if err := e.vectors.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
	}
	if err := e.graph.Close(); err != nil {
		e.logger.Error("error closing graph store", "err", err)
	}
	return e.backend.Close()
}
