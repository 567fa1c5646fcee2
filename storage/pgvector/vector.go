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


// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension. Unlike the in-process badger backend, similarity
// ordering runs server-side (`embedding <=> query`), so the store scales
// past what a brute-force scan can handle.
package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Config holds connection parameters for the store.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Dimension is the embedding length; the table column is typed to it.
	Dimension int
}

// VectorStore implements storage.VectorStore on PostgreSQL + pgvector.
type VectorStore struct {
	db     *sqlx.DB
	dim    int
	logger *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore connects to PostgreSQL and ensures the schema exists.
//
// Returns storage.VectorStore to enforce abstraction.
func NewVectorStore(cfg Config) (storage.VectorStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector: DSN is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("pgvector: Dimension must be positive")
	}

	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}

	s := &VectorStore{
		db:     db,
		dim:    cfg.Dimension,
		logger: slog.Default().With("component", "pgvector"),
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *VectorStore) ensureSchema() error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id            BIGINT PRIMARY KEY,
			document_id   TEXT NOT NULL,
			document_name TEXT NOT NULL,
			chunk_index   INT NOT NULL,
			content       TEXT NOT NULL,
			embedding     vector(%d),
			start_char    INT NOT NULL DEFAULT 0,
			end_char      INT NOT NULL DEFAULT 0,
			word_count    INT NOT NULL DEFAULT 0,
			entities      TEXT[] NOT NULL DEFAULT '{}',
			inserted_at   TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`, s.dim),
		`CREATE INDEX IF NOT EXISTS chunks_document_id_idx ON chunks (document_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("pgvector: schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection pool.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// chunkRow maps the chunks table.
type chunkRow struct {
	ID           int64          `db:"id"`
	DocumentID   string         `db:"document_id"`
	DocumentName string         `db:"document_name"`
	ChunkIndex   int            `db:"chunk_index"`
	Content      string         `db:"content"`
	Embedding    *pgv.Vector    `db:"embedding"`
	StartChar    int            `db:"start_char"`
	EndChar      int            `db:"end_char"`
	WordCount    int            `db:"word_count"`
	Entities     pq.StringArray `db:"entities"`
	InsertedAt   time.Time      `db:"inserted_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *chunkRow) toChunk() *core.Chunk {
	chunk := &core.Chunk{
		Id:           core.ID(uint64(r.ID)),
		DocumentID:   r.DocumentID,
		DocumentName: r.DocumentName,
		ChunkIndex:   r.ChunkIndex,
		Text:         r.Content,
		Metadata: core.ChunkMetadata{
			StartChar: r.StartChar,
			EndChar:   r.EndChar,
			WordCount: r.WordCount,
			Entities:  []string(r.Entities),
		},
		InsertedAt: r.InsertedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.Embedding != nil {
		chunk.Embedding = r.Embedding.Slice()
	}
	return chunk
}

const upsertChunk = `
	INSERT INTO chunks (id, document_id, document_name, chunk_index, content,
		embedding, start_char, end_char, word_count, entities, inserted_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		document_name = EXCLUDED.document_name,
		content       = EXCLUDED.content,
		embedding     = EXCLUDED.embedding,
		start_char    = EXCLUDED.start_char,
		end_char      = EXCLUDED.end_char,
		word_count    = EXCLUDED.word_count,
		entities      = EXCLUDED.entities,
		updated_at    = EXCLUDED.updated_at`

// AddChunks upserts chunks by Id.
func (s *VectorStore) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(chunk.DocumentID, chunk.ChunkIndex)
		}
		if len(chunk.Embedding) > 0 && len(chunk.Embedding) != s.dim {
			return fmt.Errorf("%w: got %d, store holds %d",
				storage.ErrDimensionMismatch, len(chunk.Embedding), s.dim)
		}

		now := time.Now().UTC()
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		chunk.UpdatedAt = now

		var embedding any
		if len(chunk.Embedding) > 0 {
			embedding = pgv.NewVector(chunk.Embedding)
		}
		entities := chunk.Metadata.Entities
		if entities == nil {
			entities = []string{}
		}

		_, err := tx.ExecContext(ctx, upsertChunk,
			int64(uint64(chunk.Id)),
			chunk.DocumentID,
			chunk.DocumentName,
			chunk.ChunkIndex,
			chunk.Text,
			embedding,
			chunk.Metadata.StartChar,
			chunk.Metadata.EndChar,
			chunk.Metadata.WordCount,
			pq.StringArray(entities),
			chunk.InsertedAt,
			chunk.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("pgvector: upsert chunk %d: %w", chunk.Id, err)
		}
	}
	return tx.Commit()
}

// Search ranks embedded chunks by cosine similarity server-side.
// pgvector's <=> operator is cosine distance; score = 1 - distance.
func (s *VectorStore) Search(ctx context.Context, embedding []float32, topK int, minScore float32) ([]*core.RankedChunk, error) {
	if topK <= 0 || len(embedding) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: got %d, store holds %d",
			storage.ErrDimensionMismatch, len(embedding), s.dim)
	}

	const query = `
		SELECT id, document_id, document_name, chunk_index, content, embedding,
			start_char, end_char, word_count, entities, inserted_at, updated_at,
			1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	type scoredRow struct {
		chunkRow
		Score float32 `db:"score"`
	}
	var rows []scoredRow
	err := s.db.SelectContext(ctx, &rows, query, pgv.NewVector(embedding), minScore, topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}

	if len(rows) == 0 {
		has, err := s.HasEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, storage.ErrNoEmbeddings
		}
	}

	results := make([]*core.RankedChunk, 0, len(rows))
	for i := range rows {
		results = append(results, &core.RankedChunk{
			Chunk:  rows[i].toChunk(),
			Score:  rows[i].Score,
			Source: core.ProvenanceVector,
		})
	}
	return results, nil
}

// SearchText ranks chunks by keyword match, mirroring the badger
// backend's fallback scoring: all words matched scores 0.4.
func (s *VectorStore) SearchText(ctx context.Context, query string, topK int) ([]*core.RankedChunk, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	words := queryWords(query)
	if len(words) == 0 {
		return []*core.RankedChunk{}, nil
	}

	// candidate set: any word present; exact counting happens in Go
	patterns := make([]string, len(words))
	for i, w := range words {
		patterns[i] = "%" + w + "%"
	}
	const candidateQuery = `
		SELECT id, document_id, document_name, chunk_index, content, embedding,
			start_char, end_char, word_count, entities, inserted_at, updated_at
		FROM chunks
		WHERE content ILIKE ANY($1)`

	var rows []chunkRow
	err := s.db.SelectContext(ctx, &rows, candidateQuery, pq.Array(patterns))
	if err != nil {
		return nil, fmt.Errorf("pgvector: text search: %w", err)
	}

	results := make([]*core.RankedChunk, 0, len(rows))
	for i := range rows {
		content := strings.ToLower(rows[i].Content)
		matched := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, &core.RankedChunk{
			Chunk:  rows[i].toChunk(),
			Score:  0.4 * float32(matched) / float32(len(words)),
			Source: core.ProvenanceVector,
		})
	}

	// highest first, deterministic tie-break
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Id < results[j].Chunk.Id
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteDocument removes all chunks belonging to the document.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("pgvector: delete document %s: %w", documentID, err)
	}
	return nil
}

// HasEmbeddings reports whether any stored chunk carries a vector.
func (s *VectorStore) HasEmbeddings(ctx context.Context) (bool, error) {
	var has bool
	err := s.db.GetContext(ctx, &has,
		`SELECT EXISTS (SELECT 1 FROM chunks WHERE embedding IS NOT NULL)`)
	if err != nil {
		return false, fmt.Errorf("pgvector: has embeddings: %w", err)
	}
	return has, nil
}

// queryWords lowercases and tokenizes a query, dropping one-letter
// tokens that would ILIKE-match nearly everything.
func queryWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"-()[]{}¿¡")
		if len(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}
