// Package store defines the vector store contract the pipeline depends on.
// Embedding computation happens inside the store implementations; the rest
// of the code only ever sees text in and ranked text out.
package store

import "context"

// Document is a chunk handed to the store for embedding and persistence.
// Re-adding an existing ID upserts, it never duplicates.
type Document struct {
	ID         string
	Text       string
	Source     string
	ChunkIndex int
}

// Result is one similarity match, most relevant first.
type Result struct {
	Text       string
	Source     string
	ChunkIndex int
	Similarity float32
}

// VectorStore persists chunk embeddings and answers similarity queries.
type VectorStore interface {
	// Add embeds and persists the documents in one batch.
	Add(ctx context.Context, docs []Document) error
	// Query returns up to k ranked matches. An empty store or a query with
	// no matches yields an empty slice, not an error.
	Query(ctx context.Context, text string, k int) ([]Result, error)
	// Count reports the number of persisted documents. Informational only.
	Count(ctx context.Context) (int, error)
}
