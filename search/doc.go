// Package search provides hybrid retrieval over indexed documents.
//
// A query fans out to two side-effect-free branches run concurrently:
// semantic search over chunk embeddings and entity-anchored search over
// the document graph. The branches are joined and fused into a single
// ranking; chunks found by both paths get a score boost and hybrid
// provenance. A failed or timed-out branch degrades the query to the
// surviving path, and when both paths come back empty a plain text
// match is tried before reporting ErrNoResults.
package search
