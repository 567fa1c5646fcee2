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


package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// VectorStore implements storage.VectorStore on BadgerDB with a
// brute-force cosine scan. Suitable for corpora that fit one process;
// larger installations use the pgvector backend.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store over the given backend.
//
// Returns storage.VectorStore to enforce abstraction.
func NewVectorStore(backend *Backend) (storage.VectorStore, error) {
	return newVectorStore(backend)
}

func newVectorStore(backend *Backend) (*VectorStore, error) {
	return &VectorStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectors"),
	}, nil
}

// Close releases resources. The shared backend is closed by its owner.
func (s *VectorStore) Close() error {
	return nil
}

// AddChunks upserts chunks by Id and maintains the per-document index.
func (s *VectorStore) AddChunks(ctx context.Context, chunks ...*core.Chunk) error {
	dim, err := s.storedDimension()
	if err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocumentID, chunk.ChunkIndex)
			}
			if len(chunk.Embedding) > 0 {
				if dim == 0 {
					dim = len(chunk.Embedding)
				} else if len(chunk.Embedding) != dim {
					return fmt.Errorf("%w: got %d, store holds %d",
						storage.ErrDimensionMismatch, len(chunk.Embedding), dim)
				}
			}

			now := time.Now().UTC()
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			if err := tx.Set(makeVecChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeVecDocIndexKey(chunk.DocumentID, chunk.Id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search ranks all embedded chunks by cosine similarity.
func (s *VectorStore) Search(ctx context.Context, embedding []float32, topK int, minScore float32) ([]*core.RankedChunk, error) {
	if topK <= 0 || len(embedding) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.RankedChunk
	embedded := 0

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vecChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil || len(chunk.Embedding) == 0 {
				continue
			}
			embedded++

			score := cosineSimilarity(embedding, chunk.Embedding)
			if score >= minScore {
				results = append(results, &core.RankedChunk{
					Chunk:  chunk,
					Score:  score,
					Source: core.ProvenanceVector,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if embedded == 0 {
		return nil, storage.ErrNoEmbeddings
	}

	sortRanked(results)
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("vector search finished",
		"candidates", embedded, "hits", len(results))
	return results, nil
}

// SearchText ranks chunks by keyword match, for chunks without vectors
// or when the embedding provider is down. All-words matches score 0.4,
// any-word matches score proportionally below that, so text hits never
// outrank decent vector hits.
func (s *VectorStore) SearchText(ctx context.Context, query string, topK int) ([]*core.RankedChunk, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return []*core.RankedChunk{}, nil
	}

	var results []*core.RankedChunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vecChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}

			matched := countMatchedWords(chunk.Text, queryWords)
			if matched == 0 {
				continue
			}
			score := 0.4 * float32(matched) / float32(len(queryWords))
			results = append(results, &core.RankedChunk{
				Chunk:  chunk,
				Score:  score,
				Source: core.ProvenanceVector,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortRanked(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteDocument removes the document's chunks and index entries.
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeVecDocIndexPrefix(documentID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var indexKeys [][]byte
		var chunkIDs []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			indexKeys = append(indexKeys, key)
			chunkIDs = append(chunkIDs, idFromBytes(key[len(key)-8:]))
		}
		iter.Close()

		for i, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(makeVecChunkKey(chunkIDs[i])); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// HasEmbeddings reports whether any stored chunk carries a vector.
func (s *VectorStore) HasEmbeddings(ctx context.Context) (bool, error) {
	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vecChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var hasVec bool
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				hasVec = len(chunk.Embedding) > 0
				return nil
			})
			if err != nil {
				return err
			}
			if hasVec {
				found = true
				return nil
			}
		}
		return nil
	}, false)
	return found, err
}

// storedDimension returns the embedding length of the first embedded
// chunk, or 0 when the store holds no vectors yet.
func (s *VectorStore) storedDimension() (int, error) {
	dim := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vecChunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				dim = len(chunk.Embedding)
				return nil
			})
			if err != nil {
				return err
			}
			if dim > 0 {
				return nil
			}
		}
		return nil
	}, false)
	return dim, err
}

// sortRanked orders results by score descending with a deterministic
// chunk-id tie-break.
func sortRanked(results []*core.RankedChunk) {
	slices.SortFunc(results, func(a, b *core.RankedChunk) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})
}
