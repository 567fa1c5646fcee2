package storage

import (
	"context"

	"github.com/poiesic/docent/core"
)

// VectorStore persists chunks with their embeddings and ranks them by
// semantic similarity. Implementations must be thread-safe and support
// concurrent access.
type VectorStore interface {
	// AddChunks upserts chunks by Id. Chunks with empty embeddings are
	// stored and remain reachable through SearchText. A non-empty
	// embedding whose length differs from already-stored vectors fails
	// with ErrDimensionMismatch.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// Search ranks stored chunks by cosine similarity against the query
	// embedding, highest first, dropping scores below minScore and
	// truncating to topK. Returns ErrNoEmbeddings when no stored chunk
	// carries a vector.
	Search(ctx context.Context, embedding []float32, topK int, minScore float32) ([]*core.RankedChunk, error)

	// SearchText ranks chunks by plain keyword match against the query,
	// for use when embeddings are unavailable. Scores are heuristic and
	// lower than vector scores.
	SearchText(ctx context.Context, query string, topK int) ([]*core.RankedChunk, error)

	// DeleteDocument removes all chunks belonging to the document.
	// Deleting an unknown document is not an error.
	DeleteDocument(ctx context.Context, documentID string) error

	// HasEmbeddings reports whether at least one stored chunk carries
	// an embedding.
	HasEmbeddings(ctx context.Context) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// GraphStore persists the document/chunk/entity graph and answers
// entity-anchored and neighborhood queries. Implementations must be
// thread-safe and support concurrent access.
type GraphStore interface {
	// AddDocument upserts the document node, its chunks, and the
	// HAS_CHUNK/MENTIONS/NEXT edges, then recomputes RELATED_TO edges
	// for this document. entitiesPerChunk is parallel to chunks; entry i
	// lists the entities mentioned by chunks[i] (normalized names).
	AddDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk, entitiesPerChunk [][]core.EntityRef) error

	// SearchByEntities returns chunks mentioning any of the named
	// entities (normalized, case-insensitive), scored by how many
	// distinct query entities each chunk matches, highest first.
	// Unknown entity names are skipped.
	SearchByEntities(ctx context.Context, names []string, topK int) ([]*core.RankedChunk, error)

	// ExpandNeighbors returns the chunks adjacent to chunkID along NEXT
	// edges, up to window positions in each direction, in document order.
	ExpandNeighbors(ctx context.Context, chunkID core.ID, window int) ([]*core.Chunk, error)

	// RelatedDocuments returns documents connected to documentID by
	// RELATED_TO edges, strongest first.
	RelatedDocuments(ctx context.Context, documentID string) ([]core.DocumentRelation, error)

	// Documents lists all document nodes, most recently indexed first.
	Documents(ctx context.Context) ([]*core.DocumentInfo, error)

	// Entities returns the entities mentioned by documentID's chunks.
	Entities(ctx context.Context, documentID string) ([]*core.Entity, error)

	// DeleteDocument detach-deletes the document: its chunks, its edges,
	// and any entities left with no remaining mentions. Deleting an
	// unknown document is not an error.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close closes the store and releases resources.
	Close() error
}
