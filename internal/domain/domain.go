package domain

import "context"

// ChunkMetadata carries the fixed descriptive fields attached to every chunk.
// All fields are set at ingestion time and never mutated afterwards.
type ChunkMetadata struct {
	// Group is the logical partition the source file belongs to,
	// e.g. the grade-level directory name ("grade-7").
	Group string
	// Subject is the short subject code from the file naming convention.
	Subject string
	// SubjectLabel is the human-readable subject name.
	SubjectLabel string
	// SourceTitle is a display title for the source document.
	SourceTitle string
	// FileName is the originating file's base name.
	FileName string
	// Page is the estimated source page, interpolated from the chunk's
	// character offset. Approximate; intended for citation display only.
	Page int
	// Ordinal is the zero-based chunk index within the source file.
	Ordinal int
}

// Chunk is the atomic unit of retrieval: a bounded segment of source text
// with a deterministic ID and fixed metadata. Re-ingesting an unchanged
// source produces identical IDs, which makes upserts idempotent.
type Chunk struct {
	ID   string
	Text string
	Meta ChunkMetadata
}

// SearchResult is one ranked retrieval hit. Distance is the raw value
// reported by the vector store; Similarity is the bounded 1/(1+d) score.
type SearchResult struct {
	Chunk      Chunk
	Distance   float64
	Similarity float64
}

// Embedder converts free text into a numeric vector representation using a
// fixed remote model.
type Embedder interface {
	// Embed returns the embedding vector for text, or an error the caller
	// decides is fatal or tolerable.
	Embed(ctx context.Context, text string) ([]float64, error)
	// Health verifies the embedding endpoint is reachable and the
	// configured model is registered there.
	Health(ctx context.Context) error
	// Model returns the configured model identifier.
	Model() string
}

// Extractor turns a source document into plain text plus its page count.
type Extractor interface {
	Extract(ctx context.Context, path string) (text string, pages int, err error)
}
