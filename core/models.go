package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated by content-based hashing so that re-indexing the same
// document produces the same IDs (upsert semantics).
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of a chunk from its document ID and position.
// The derivation is deterministic so re-indexing a document overwrites
// its previous chunks instead of duplicating them.
func ChunkID(documentID string, chunkIndex int) ID {
	return IDFromContent(fmt.Sprintf("%s#%d", documentID, chunkIndex))
}

// EntityID derives the ID of an entity from its normalized name.
// Entity identity is the normalized name, not the surface form.
func EntityID(normalizedName string) ID {
	return IDFromContent("entity:" + normalizedName)
}

// Document is a unit of indexable text owned by the caller.
// The engine stores a bounded preview of Text, not necessarily all of it.
type Document struct {
	Id        string
	Name      string
	Text      string
	CreatedAt time.Time
}

// DocumentInfo is the document node persisted by the graph store.
// Preview holds a bounded prefix of the original text.
type DocumentInfo struct {
	Id         string
	Name       string
	Preview    string
	ChunkCount int
	CreatedAt  time.Time
	InsertedAt time.Time
}

// ChunkMetadata carries the provenance of a chunk within its document.
type ChunkMetadata struct {
	StartChar int
	EndChar   int
	WordCount int
	Entities  []string // normalized names of entities mentioned in the chunk
}

// Chunk is a bounded, possibly overlapping slice of a document's text,
// the unit of indexing and retrieval. It may be enriched with an
// embedding and entity mentions during indexing.
type Chunk struct {
	Id           ID
	DocumentID   string
	DocumentName string
	ChunkIndex   int // contiguous 0-based sequence per document
	Text         string
	Embedding    []float32 // empty when embedding failed; still text-searchable
	Metadata     ChunkMetadata
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// Entity is a named concept extracted from text, used to anchor graph
// traversal. Name is the normalized form and is the unique key.
type Entity struct {
	Id           ID
	Name         string
	Type         string
	MentionCount int
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// EntityRef references an entity mentioned by a chunk.
// Name must already be normalized.
type EntityRef struct {
	Name string
	Type string
}

// Provenance records which retrieval path produced a result.
type Provenance string

const (
	ProvenanceVector Provenance = "vector"
	ProvenanceGraph  Provenance = "graph"
	ProvenanceHybrid Provenance = "hybrid"
)

// RankedChunk is a retrieval result with its relevance score and provenance.
type RankedChunk struct {
	Chunk      *Chunk
	Score      float32
	Source     Provenance
	MatchCount int      // distinct query entities matched (graph/hybrid results)
	Entities   []string // matched entity names, merged across paths
}

// DocumentRelation describes a RELATED_TO edge between two documents.
type DocumentRelation struct {
	DocumentID     string
	Name           string
	SharedEntities int
}
