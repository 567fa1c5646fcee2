package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docent/core"
)

// Key prefixes. The vector and graph stores share one BadgerDB but own
// disjoint key spaces. Document IDs appear verbatim in composite keys,
// so IDs containing ':' can alias each other's scan prefixes; callers
// are expected to use opaque identifiers.
const (
	// vector store
	vecChunkPrefix    = "vec:chk"
	vecDocIndexPrefix = "vec:doc"

	// graph store nodes
	gphDocPrefix     = "gph:doc"
	gphChunkPrefix   = "gph:chk"
	gphEntityPrefix  = "gph:ent"
	gphEntNamePrefix = "gph:entname"

	// graph store edges
	gphHasChunkPrefix  = "gph:haschk"  // document -> chunk
	gphNextPrefix      = "gph:next"    // chunk -> following chunk
	gphPrevPrefix      = "gph:prev"    // chunk -> preceding chunk
	gphMentionsPrefix  = "gph:ment"    // chunk -> entity
	gphEntChunkPrefix  = "gph:entchk"  // entity -> chunk (inverted MENTIONS)
	gphDocEntityPrefix = "gph:docent"  // document -> entity
	gphEntDocPrefix    = "gph:entdoc"  // entity -> document
	gphRelatedPrefix   = "gph:rel"     // document <-> document
)

// idBytes encodes an ID in BigEndian so lexicographic iteration follows
// numeric order.
func idBytes(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func idFromBytes(buf []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(buf))
}

// composite builds prefix:part:part... with byte parts appended verbatim.
func composite(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += 1 + len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, ':')
		buf = append(buf, p...)
	}
	return buf
}

// vector store keys

func makeVecChunkKey(id core.ID) []byte {
	return composite(vecChunkPrefix, idBytes(id))
}

func makeVecDocIndexKey(documentID string, id core.ID) []byte {
	return composite(vecDocIndexPrefix, []byte(documentID), idBytes(id))
}

func makeVecDocIndexPrefix(documentID string) []byte {
	return composite(vecDocIndexPrefix, []byte(documentID), nil)
}

// graph store node keys

func makeDocKey(documentID string) []byte {
	return composite(gphDocPrefix, []byte(documentID))
}

func makeGphChunkKey(id core.ID) []byte {
	return composite(gphChunkPrefix, idBytes(id))
}

func makeEntityKey(id core.ID) []byte {
	return composite(gphEntityPrefix, idBytes(id))
}

func makeEntityNameKey(normalizedName string) []byte {
	return composite(gphEntNamePrefix, []byte(normalizedName))
}

// graph store edge keys

func makeHasChunkKey(documentID string, chunkID core.ID) []byte {
	return composite(gphHasChunkPrefix, []byte(documentID), idBytes(chunkID))
}

func makeHasChunkPrefix(documentID string) []byte {
	return composite(gphHasChunkPrefix, []byte(documentID), nil)
}

func makeNextKey(chunkID core.ID) []byte {
	return composite(gphNextPrefix, idBytes(chunkID))
}

func makePrevKey(chunkID core.ID) []byte {
	return composite(gphPrevPrefix, idBytes(chunkID))
}

func makeMentionsKey(chunkID, entityID core.ID) []byte {
	return composite(gphMentionsPrefix, idBytes(chunkID), idBytes(entityID))
}

func makeMentionsPrefix(chunkID core.ID) []byte {
	return composite(gphMentionsPrefix, idBytes(chunkID), nil)
}

func makeEntChunkKey(entityID, chunkID core.ID) []byte {
	return composite(gphEntChunkPrefix, idBytes(entityID), idBytes(chunkID))
}

func makeEntChunkPrefix(entityID core.ID) []byte {
	return composite(gphEntChunkPrefix, idBytes(entityID), nil)
}

func makeDocEntityKey(documentID string, entityID core.ID) []byte {
	return composite(gphDocEntityPrefix, []byte(documentID), idBytes(entityID))
}

func makeDocEntityPrefix(documentID string) []byte {
	return composite(gphDocEntityPrefix, []byte(documentID), nil)
}

func makeEntDocKey(entityID core.ID, documentID string) []byte {
	return composite(gphEntDocPrefix, idBytes(entityID), []byte(documentID))
}

func makeEntDocPrefix(entityID core.ID) []byte {
	return composite(gphEntDocPrefix, idBytes(entityID), nil)
}

func makeRelatedKey(documentID, otherID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", gphRelatedPrefix, documentID, otherID))
}

func makeRelatedPrefix(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", gphRelatedPrefix, documentID))
}
