// Package vectorstore defines the gateway to a remote vector index.
package vectorstore

import (
	"context"

	"tutorrag/internal/domain"
)

// UpsertBatch holds the parallel arrays for one upsert call. Vectors may
// contain nil entries: a chunk whose embedding failed is still stored with
// its text and metadata so it stays visible to metadata listing, even though
// similarity search cannot find it.
type UpsertBatch struct {
	IDs       []string
	Vectors   [][]float64
	Documents []string
	Metadatas []domain.ChunkMetadata
}

// QueryResult holds the parallel arrays returned by a top-K similarity
// query, ordered by ascending distance.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []domain.ChunkMetadata
	Distances []float64
}

// Store abstracts a remote vector index. Chunk IDs are unique only within a
// collection; upsert replaces by ID, which makes re-ingestion idempotent.
type Store interface {
	// EnsureCollection creates the named collection if missing.
	EnsureCollection(ctx context.Context, name string, metadata map[string]string) error
	// DeleteCollection removes the named collection and all its chunks.
	DeleteCollection(ctx context.Context, name string) error
	// Upsert inserts or replaces the batch by ID.
	Upsert(ctx context.Context, collection string, batch UpsertBatch) error
	// Count returns the number of stored chunks, embedded or not.
	Count(ctx context.Context, collection string) (int, error)
	// Query returns the topK nearest chunks to vector.
	Query(ctx context.Context, collection string, vector []float64, topK int) (QueryResult, error)
}
