// Package badger implements the storage interfaces on BadgerDB.
//
// One Backend (one BadgerDB instance) hosts both stores under disjoint
// key prefixes. Vector search is a brute-force cosine scan over all
// embedded chunks; graph traversals are prefix scans over edge keys laid
// out so the needed adjacency is a contiguous key range.
package badger
