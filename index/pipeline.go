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


package index

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunk"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultEntityChunkLimit bounds how many chunks per document get
	// entity extraction. Leading chunks carry most of a document's
	// distinct entities; past the prefix, extraction cost outweighs
	// graph recall.
	DefaultEntityChunkLimit = 15

	// DefaultChunkDelay is the pause between consecutive chunks, sized
	// for a local model server that handles one request at a time.
	DefaultChunkDelay = 200 * time.Millisecond

	// DefaultCallTimeout bounds a single provider call, independent of
	// the caller's deadline.
	DefaultCallTimeout = 30 * time.Second
)

// Stats summarizes what one document contributed to the index.
type Stats struct {
	ChunksCreated     int
	EntitiesExtracted int
}

// Pipeline chunks documents, enriches chunks with embeddings and
// entities, and writes them to the vector and graph stores.
type Pipeline struct {
	vectors   storage.VectorStore
	graph     storage.GraphStore
	embedder  ai.Embedder
	extractor ai.EntityExtractor
	pool      *ants.Pool

	chunkOpts        chunk.Options
	chunkDelay       time.Duration
	entityChunkLimit int
	callTimeout      time.Duration
	policy           ai.Policy
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent enrichment.
// Default is runtime.NumCPU() / 2, with a minimum of 2 so one chunk's
// embedding and extraction can overlap.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 2 {
			size = 2
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunkOptions overrides the chunking window parameters.
func WithChunkOptions(opts chunk.Options) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = opts
		return nil
	}
}

// WithChunkDelay sets the pause between consecutive chunks.
// Zero disables the delay.
func WithChunkDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay < 0 {
			delay = 0
		}
		p.chunkDelay = delay
		return nil
	}
}

// WithEntityChunkLimit sets how many leading chunks per document get
// entity extraction. Zero or negative disables extraction entirely.
func WithEntityChunkLimit(limit int) Option {
	return func(p *Pipeline) error {
		p.entityChunkLimit = limit
		return nil
	}
}

// WithCallTimeout sets the per-call provider timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout > 0 {
			p.callTimeout = timeout
		}
		return nil
	}
}

// WithRetryPolicy overrides the retry policy for provider calls.
func WithRetryPolicy(policy ai.Policy) Option {
	return func(p *Pipeline) error {
		if policy != nil {
			p.policy = policy
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "index")
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	vectors storage.VectorStore,
	graph storage.GraphStore,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if graph == nil {
		return nil, ErrGraphStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 2 {
		poolSize = 2
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		vectors:          vectors,
		graph:            graph,
		embedder:         provider.Embedder(),
		extractor:        provider.EntityExtractor(),
		pool:             pool,
		chunkDelay:       DefaultChunkDelay,
		entityChunkLimit: DefaultEntityChunkLimit,
		callTimeout:      DefaultCallTimeout,
		policy:           ai.DefaultPolicy(),
		logger:           slog.Default().With("component", "index"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// IndexDocument chunks, enriches, and stores one document. Re-indexing
// an existing document id replaces its previous chunks and edges.
//
// Provider failures never abort the document: a chunk whose embedding
// call fails is stored without a vector (still reachable through text
// fallback), and a failed extraction yields zero entities for that
// chunk. The returned stats count what actually succeeded.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *core.Document) (*Stats, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = doc.Id
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	pieces, err := chunk.SplitStructured(doc.Text, p.chunkOpts)
	if err != nil {
		return nil, err
	}

	p.logger.Info("indexing document", "document", doc.Id, "chunks", len(pieces))

	chunks := make([]*core.Chunk, len(pieces))
	entitiesPerChunk := make([][]core.EntityRef, len(pieces))
	stats := &Stats{ChunksCreated: len(pieces)}

	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			Id:           core.ChunkID(doc.Id, i),
			DocumentID:   doc.Id,
			DocumentName: doc.Name,
			ChunkIndex:   i,
			Text:         piece.Text,
			Metadata: core.ChunkMetadata{
				StartChar: piece.Start,
				EndChar:   piece.End,
				WordCount: len(strings.Fields(piece.Text)),
			},
		}

		extract := i < p.entityChunkLimit
		refs := p.enrichChunk(ctx, chunks[i], extract)
		entitiesPerChunk[i] = refs
		stats.EntitiesExtracted += len(refs)

		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			names = append(names, core.NormalizeEntityName(ref.Name))
		}
		chunks[i].Metadata.Entities = names

		if p.chunkDelay > 0 && i < len(pieces)-1 {
			timer := time.NewTimer(p.chunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	// the graph store detach-deletes the old version itself; the vector
	// store is a plain upsert, so drop stale chunks here or a shrinking
	// re-index would leave the tail of the old version searchable
	if err := p.vectors.DeleteDocument(ctx, doc.Id); err != nil {
		return nil, err
	}
	if err := p.vectors.AddChunks(ctx, chunks...); err != nil {
		return nil, err
	}
	if err := p.graph.AddDocument(ctx, doc, chunks, entitiesPerChunk); err != nil {
		return nil, err
	}

	p.logger.Info("document indexed",
		"document", doc.Id, "chunks", stats.ChunksCreated, "entities", stats.EntitiesExtracted)
	return stats, nil
}

// IndexBatch indexes documents one at a time, stopping at the first
// storage error. Stats accumulate across the documents indexed so far.
func (p *Pipeline) IndexBatch(ctx context.Context, docs []*core.Document) (*Stats, error) {
	total := &Stats{}
	for _, doc := range docs {
		stats, err := p.IndexDocument(ctx, doc)
		if err != nil {
			return total, err
		}
		total.ChunksCreated += stats.ChunksCreated
		total.EntitiesExtracted += stats.EntitiesExtracted
	}
	return total, nil
}

// RemoveDocument deletes the document from both stores.
func (p *Pipeline) RemoveDocument(ctx context.Context, documentID string) error {
	if err := p.vectors.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	return p.graph.DeleteDocument(ctx, documentID)
}

// enrichChunk runs the chunk's embedding and extraction calls
// concurrently and waits for both. Failures are logged and leave the
// corresponding field empty.
func (p *Pipeline) enrichChunk(ctx context.Context, c *core.Chunk, extract bool) []core.EntityRef {
	var (
		embedding []float32
		entities  []ai.ExtractedEntity
		embedErr  error
		extErr    error
	)

	done := make(chan struct{}, 2)
	submitted := 0

	submit := func(task func()) {
		wrapped := func() {
			defer func() { done <- struct{}{} }()
			task()
		}
		if err := p.pool.Submit(wrapped); err != nil {
			// pool released or saturated beyond its queue; run inline
			wrapped()
		}
		submitted++
	}

	submit(func() {
		embedding, embedErr = p.embedText(ctx, c.Text)
	})
	if extract {
		submit(func() {
			entities, extErr = p.extractEntities(ctx, c.Text)
		})
	}
	for i := 0; i < submitted; i++ {
		<-done
	}

	if embedErr != nil {
		p.logger.Warn("embedding failed, chunk stored without vector",
			"document", c.DocumentID, "chunk", c.ChunkIndex, "err", embedErr)
	} else {
		c.Embedding = embedding
	}
	if extErr != nil {
		p.logger.Warn("entity extraction failed, chunk stored without entities",
			"document", c.DocumentID, "chunk", c.ChunkIndex, "err", extErr)
		return nil
	}

	refs := make([]core.EntityRef, 0, len(entities))
	for _, e := range entities {
		if core.NormalizeEntityName(e.Name) == "" {
			continue
		}
		refs = append(refs, core.EntityRef{Name: e.Name, Type: e.Type})
	}
	return refs
}

func (p *Pipeline) embedText(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
		var callErr error
		embedding, callErr = p.embedder.Embed(callCtx, text)
		return callErr
	})
	return embedding, err
}

func (p *Pipeline) extractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	var entities []ai.ExtractedEntity
	err := ai.Retry(ctx, p.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
		var callErr error
		entities, callErr = p.extractor.ExtractEntities(callCtx, text)
		return callErr
	})
	return entities, err
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
