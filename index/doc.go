// Package index turns raw documents into indexed, searchable state.
//
// The Pipeline chunks a document, enriches each chunk with an embedding
// and extracted entities, and writes the result to both the vector and
// graph stores. Enrichment of a single chunk runs its embedding and
// extraction calls concurrently on a worker pool; chunks themselves are
// processed sequentially with a small delay so a large document does not
// saturate a local model server. Provider failures degrade the affected
// chunk instead of failing the document.
package index
