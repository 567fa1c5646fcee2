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
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const defaultPreviewChars = 500

// GraphScoreConfig tunes entity-match scoring.
// Score = Base + MatchWeight * distinctMatchedEntities, capped at 1.0.
type GraphScoreConfig struct {
	Base        float32
	MatchWeight float32
}

// DefaultGraphScoreConfig returns the standard scoring parameters.
func DefaultGraphScoreConfig() GraphScoreConfig {
	return GraphScoreConfig{Base: 0.5, MatchWeight: 0.1}
}

// GraphStore implements storage.GraphStore on BadgerDB. Nodes are
// records under typed key prefixes; edges are empty keys whose layout
// makes prefix scans answer the traversals the search path needs.
type GraphStore struct {
	backend *Backend
	scoring GraphScoreConfig
	preview int
	logger  *slog.Logger
}

var _ storage.GraphStore = (*GraphStore)(nil)

// GraphOption configures a GraphStore.
type GraphOption func(*GraphStore)

// WithScoreConfig overrides the entity-match scoring parameters.
func WithScoreConfig(cfg GraphScoreConfig) GraphOption {
	return func(s *GraphStore) {
		s.scoring = cfg
	}
}

// NewGraphStore creates a graph store over the given backend.
//
// Returns storage.GraphStore to enforce abstraction.
func NewGraphStore(backend *Backend, opts ...GraphOption) (storage.GraphStore, error) {
	return newGraphStore(backend, opts...)
}

func newGraphStore(backend *Backend, opts ...GraphOption) (*GraphStore, error) {
	s := &GraphStore{
		backend: backend,
		scoring: DefaultGraphScoreConfig(),
		preview: defaultPreviewChars,
		logger:  slog.Default().With("component", "badger-graph"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases resources. The shared backend is closed by its owner.
func (s *GraphStore) Close() error {
	return nil
}

// AddDocument upserts the document subgraph. Re-indexing first
// detach-deletes the previous version so stale chunks and mention edges
// never survive a shrinking document.
func (s *GraphStore) AddDocument(ctx context.Context, doc *core.Document, chunks []*core.Chunk, entitiesPerChunk [][]core.EntityRef) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if len(entitiesPerChunk) != len(chunks) {
		return fmt.Errorf("%w: %d chunks but %d entity lists",
			storage.ErrInvalidQuery, len(chunks), len(entitiesPerChunk))
	}

	ordered := make([]*core.Chunk, len(chunks))
	copy(ordered, chunks)
	slices.SortFunc(ordered, func(a, b *core.Chunk) int {
		return a.ChunkIndex - b.ChunkIndex
	})

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.deleteDocumentTx(tx, doc.Id); err != nil {
			return err
		}

		now := time.Now().UTC()
		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		info := &core.DocumentInfo{
			Id:         doc.Id,
			Name:       doc.Name,
			Preview:    preview(doc.Text, s.preview),
			ChunkCount: len(chunks),
			CreatedAt:  createdAt,
			InsertedAt: now,
		}
		if err := tx.Set(makeDocKey(doc.Id), storage.MarshalDocumentInfo(info)); err != nil {
			return err
		}

		// chunk nodes, HAS_CHUNK and NEXT edges
		for i, chunk := range ordered {
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocumentID, chunk.ChunkIndex)
			}
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			if err := tx.Set(makeGphChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeHasChunkKey(doc.Id, chunk.Id), nil); err != nil {
				return err
			}
			if i > 0 && ordered[i-1].ChunkIndex+1 == chunk.ChunkIndex {
				if err := tx.Set(makeNextKey(ordered[i-1].Id), idBytes(chunk.Id)); err != nil {
					return err
				}
				if err := tx.Set(makePrevKey(chunk.Id), idBytes(ordered[i-1].Id)); err != nil {
					return err
				}
			}
		}

		// entity nodes and MENTIONS edges; mention counts accumulate
		// across chunks before the entity records are written
		mentions := make(map[core.ID]int)
		entities := make(map[core.ID]*core.Entity)
		for i, chunk := range chunks {
			for _, ref := range entitiesPerChunk[i] {
				normalized := core.NormalizeEntityName(ref.Name)
				if normalized == "" {
					continue
				}
				entityID := core.EntityID(normalized)

				if _, ok := entities[entityID]; !ok {
					existing, err := readEntity(tx, makeEntityKey(entityID))
					if err != nil {
						return err
					}
					if existing == nil {
						existing = &core.Entity{
							Id:         entityID,
							Name:       normalized,
							Type:       ref.Type,
							InsertedAt: now,
						}
					}
					entities[entityID] = existing
				}

				if err := tx.Set(makeMentionsKey(chunk.Id, entityID), nil); err != nil {
					return err
				}
				if err := tx.Set(makeEntChunkKey(entityID, chunk.Id), nil); err != nil {
					return err
				}
				if err := tx.Set(makeDocEntityKey(doc.Id, entityID), nil); err != nil {
					return err
				}
				if err := tx.Set(makeEntDocKey(entityID, doc.Id), nil); err != nil {
					return err
				}
				mentions[entityID]++
			}
		}
		for entityID, entity := range entities {
			entity.MentionCount += mentions[entityID]
			entity.UpdatedAt = now
			if err := tx.Set(makeEntityKey(entityID), storage.MarshalEntity(entity)); err != nil {
				return err
			}
			if err := tx.Set(makeEntityNameKey(entity.Name), storage.MarshalID(entityID)); err != nil {
				return err
			}
		}

		if err := s.recomputeRelatedTx(tx, doc.Id); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	s.logger.Debug("document graph written",
		"document", doc.Id, "chunks", len(chunks))
	return nil
}

// SearchByEntities returns chunks mentioning the named entities, scored
// by how many distinct query entities each chunk matches.
func (s *GraphStore) SearchByEntities(ctx context.Context, names []string, topK int) ([]*core.RankedChunk, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	matchCounts := make(map[core.ID]int)
	matchNames := make(map[core.ID][]string)

	// query names that normalize to the same entity count once
	seen := make(map[string]bool, len(names))

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, name := range names {
			normalized := core.NormalizeEntityName(name)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			entityID, err := readEntityID(tx, makeEntityNameKey(normalized))
			if err != nil {
				return err
			}
			if entityID == 0 {
				// unknown entities are skipped, not errors
				continue
			}

			chunkIDs, err := scanSuffixIDs(tx, makeEntChunkPrefix(entityID))
			if err != nil {
				return err
			}
			for _, chunkID := range chunkIDs {
				matchCounts[chunkID]++
				matchNames[chunkID] = append(matchNames[chunkID], normalized)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	results := make([]*core.RankedChunk, 0, len(matchCounts))
	err = s.backend.WithTx(func(tx *badger.Txn) error {
		for chunkID, count := range matchCounts {
			chunk, err := readChunk(tx, makeGphChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			score := s.scoring.Base + s.scoring.MatchWeight*float32(count)
			if score > 1.0 {
				score = 1.0
			}
			names := matchNames[chunkID]
			slices.Sort(names)
			results = append(results, &core.RankedChunk{
				Chunk:      chunk,
				Score:      score,
				Source:     core.ProvenanceGraph,
				MatchCount: count,
				Entities:   names,
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

// ExpandNeighbors returns up to window chunks on each side of chunkID
// along NEXT edges, in document order, excluding the anchor itself.
func (s *GraphStore) ExpandNeighbors(ctx context.Context, chunkID core.ID, window int) ([]*core.Chunk, error) {
	if window <= 0 {
		return []*core.Chunk{}, nil
	}

	var neighbors []*core.Chunk
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var before []*core.Chunk
		current := chunkID
		for i := 0; i < window; i++ {
			prevID, err := readEdgeTarget(tx, makePrevKey(current))
			if err != nil {
				return err
			}
			if prevID == 0 {
				break
			}
			chunk, err := readChunk(tx, makeGphChunkKey(prevID))
			if err != nil {
				return err
			}
			if chunk == nil {
				break
			}
			before = append(before, chunk)
			current = prevID
		}
		slices.Reverse(before)
		neighbors = append(neighbors, before...)

		current = chunkID
		for i := 0; i < window; i++ {
			nextID, err := readEdgeTarget(tx, makeNextKey(current))
			if err != nil {
				return err
			}
			if nextID == 0 {
				break
			}
			chunk, err := readChunk(tx, makeGphChunkKey(nextID))
			if err != nil {
				return err
			}
			if chunk == nil {
				break
			}
			neighbors = append(neighbors, chunk)
			current = nextID
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return neighbors, nil
}

// RelatedDocuments returns documents sharing entities with documentID,
// most shared entities first.
func (s *GraphStore) RelatedDocuments(ctx context.Context, documentID string) ([]core.DocumentRelation, error) {
	var relations []core.DocumentRelation

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeRelatedPrefix(documentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		type rel struct {
			otherID string
			count   int
		}
		var rels []rel
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			otherID := string(key[len(prefix):])
			var count core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				count, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			rels = append(rels, rel{otherID: otherID, count: int(count)})
		}

		for _, r := range rels {
			info, err := readDocumentInfo(tx, makeDocKey(r.otherID))
			if err != nil {
				return err
			}
			name := r.otherID
			if info != nil {
				name = info.Name
			}
			relations = append(relations, core.DocumentRelation{
				DocumentID:     r.otherID,
				Name:           name,
				SharedEntities: r.count,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(relations, func(a, b core.DocumentRelation) int {
		if a.SharedEntities != b.SharedEntities {
			return b.SharedEntities - a.SharedEntities
		}
		return strings.Compare(a.DocumentID, b.DocumentID)
	})
	return relations, nil
}

// Documents lists all document nodes, most recently indexed first.
func (s *GraphStore) Documents(ctx context.Context) ([]*core.DocumentInfo, error) {
	var infos []*core.DocumentInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(gphDocPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var info *core.DocumentInfo
			err := iter.Item().Value(func(val []byte) error {
				var err error
				info, err = storage.UnmarshalDocumentInfo(val)
				return err
			})
			if err != nil {
				return err
			}
			if info != nil {
				infos = append(infos, info)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(infos, func(a, b *core.DocumentInfo) int {
		return b.InsertedAt.Compare(a.InsertedAt)
	})
	return infos, nil
}

// Entities returns the entities mentioned by documentID's chunks,
// highest mention count first.
func (s *GraphStore) Entities(ctx context.Context, documentID string) ([]*core.Entity, error) {
	var entities []*core.Entity
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		entityIDs, err := scanSuffixIDs(tx, makeDocEntityPrefix(documentID))
		if err != nil {
			return err
		}
		for _, entityID := range entityIDs {
			entity, err := readEntity(tx, makeEntityKey(entityID))
			if err != nil {
				return err
			}
			if entity != nil {
				entities = append(entities, entity)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entities, func(a, b *core.Entity) int {
		if a.MentionCount != b.MentionCount {
			return b.MentionCount - a.MentionCount
		}
		return strings.Compare(a.Name, b.Name)
	})
	return entities, nil
}

// DeleteDocument detach-deletes the document and prunes entities whose
// last mention it held.
func (s *GraphStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.deleteDocumentTx(tx, documentID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteDocumentTx removes the document subgraph inside an open write
// transaction. Deleting an unknown document is a no-op.
func (s *GraphStore) deleteDocumentTx(tx *badger.Txn, documentID string) error {
	chunkIDs, err := scanSuffixIDs(tx, makeHasChunkPrefix(documentID))
	if err != nil {
		return err
	}

	// mention edges and per-entity mention decrements
	decrements := make(map[core.ID]int)
	for _, chunkID := range chunkIDs {
		entityIDs, err := scanSuffixIDs(tx, makeMentionsPrefix(chunkID))
		if err != nil {
			return err
		}
		for _, entityID := range entityIDs {
			if err := tx.Delete(makeMentionsKey(chunkID, entityID)); err != nil {
				return err
			}
			if err := tx.Delete(makeEntChunkKey(entityID, chunkID)); err != nil {
				return err
			}
			decrements[entityID]++
		}

		if err := tx.Delete(makeGphChunkKey(chunkID)); err != nil {
			return err
		}
		if err := tx.Delete(makeHasChunkKey(documentID, chunkID)); err != nil {
			return err
		}
		if err := tx.Delete(makeNextKey(chunkID)); err != nil {
			return err
		}
		if err := tx.Delete(makePrevKey(chunkID)); err != nil {
			return err
		}
	}

	// entity decrements and orphan pruning
	for entityID, dec := range decrements {
		if err := tx.Delete(makeEntDocKey(entityID, documentID)); err != nil {
			return err
		}
		entity, err := readEntity(tx, makeEntityKey(entityID))
		if err != nil {
			return err
		}
		if entity == nil {
			continue
		}
		entity.MentionCount -= dec
		if entity.MentionCount > 0 {
			entity.UpdatedAt = time.Now().UTC()
			if err := tx.Set(makeEntityKey(entityID), storage.MarshalEntity(entity)); err != nil {
				return err
			}
			continue
		}
		if err := tx.Delete(makeEntityKey(entityID)); err != nil {
			return err
		}
		if err := tx.Delete(makeEntityNameKey(entity.Name)); err != nil {
			return err
		}
	}

	// document -> entity edges
	entityIDs, err := scanSuffixIDs(tx, makeDocEntityPrefix(documentID))
	if err != nil {
		return err
	}
	for _, entityID := range entityIDs {
		if err := tx.Delete(makeDocEntityKey(documentID, entityID)); err != nil {
			return err
		}
	}

	// RELATED_TO edges, both directions
	otherIDs, err := scanRelatedOthers(tx, documentID)
	if err != nil {
		return err
	}
	for _, otherID := range otherIDs {
		if err := tx.Delete(makeRelatedKey(documentID, otherID)); err != nil {
			return err
		}
		if err := tx.Delete(makeRelatedKey(otherID, documentID)); err != nil {
			return err
		}
	}

	return tx.Delete(makeDocKey(documentID))
}

// recomputeRelatedTx rewrites the RELATED_TO edges touching documentID
// from its current entity set.
func (s *GraphStore) recomputeRelatedTx(tx *badger.Txn, documentID string) error {
	entityIDs, err := scanSuffixIDs(tx, makeDocEntityPrefix(documentID))
	if err != nil {
		return err
	}

	shared := make(map[string]int)
	for _, entityID := range entityIDs {
		otherIDs, err := scanSuffixStrings(tx, makeEntDocPrefix(entityID))
		if err != nil {
			return err
		}
		for _, otherID := range otherIDs {
			if otherID != documentID {
				shared[otherID]++
			}
		}
	}

	// drop stale edges before writing the fresh counts
	staleIDs, err := scanRelatedOthers(tx, documentID)
	if err != nil {
		return err
	}
	for _, otherID := range staleIDs {
		if _, still := shared[otherID]; still {
			continue
		}
		if err := tx.Delete(makeRelatedKey(documentID, otherID)); err != nil {
			return err
		}
		if err := tx.Delete(makeRelatedKey(otherID, documentID)); err != nil {
			return err
		}
	}

	for otherID, count := range shared {
		value := storage.MarshalID(core.ID(count))
		if err := tx.Set(makeRelatedKey(documentID, otherID), value); err != nil {
			return err
		}
		if err := tx.Set(makeRelatedKey(otherID, documentID), value); err != nil {
			return err
		}
	}
	return nil
}

// preview returns the first max characters of text on a rune boundary.
func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// read helpers; all return nil (or zero) for missing keys

func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}

func readDocumentInfo(tx *badger.Txn, key []byte) (*core.DocumentInfo, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var info *core.DocumentInfo
	err = item.Value(func(val []byte) error {
		var err error
		info, err = storage.UnmarshalDocumentInfo(val)
		return err
	})
	return info, err
}

func readEntityID(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	return id, err
}

// readEdgeTarget reads a NEXT/PREV edge value (a raw BigEndian chunk id).
func readEdgeTarget(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		id = idFromBytes(val)
		return nil
	})
	return id, err
}

// scanSuffixIDs collects the trailing 8-byte IDs of all keys under prefix.
func scanSuffixIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < 8 {
			continue
		}
		ids = append(ids, idFromBytes(key[len(key)-8:]))
	}
	return ids, nil
}

// scanSuffixStrings collects the string suffixes of all keys under prefix.
func scanSuffixStrings(tx *badger.Txn, prefix []byte) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var suffixes []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		suffixes = append(suffixes, string(key[len(prefix):]))
	}
	return suffixes, nil
}

func scanRelatedOthers(tx *badger.Txn, documentID string) ([]string, error) {
	return scanSuffixStrings(tx, makeRelatedPrefix(documentID))
}
