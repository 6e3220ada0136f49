// Package search is the query-time retrieval engine: it embeds a question,
// runs a top-K similarity query and returns ranked, metadata-annotated
// passages for grounding a language-model prompt.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/phuslu/log"

	"tutorrag/internal/domain"
	"tutorrag/internal/vectorstore"
)

// ErrEmptyCollection distinguishes "nothing indexed yet" from a query that
// legitimately found no close matches.
var ErrEmptyCollection = errors.New("collection has no indexed chunks")

// Similarity thresholds used by callers to judge match quality. The engine
// reports scores; what to do with weak matches is the caller's decision.
const (
	ConfidentThreshold = 0.5
	PartialThreshold   = 0.3
)

// Verdict classifies a top similarity score against the thresholds.
type Verdict string

const (
	VerdictConfident Verdict = "confident"
	VerdictPartial   Verdict = "partial"
	VerdictWeak      Verdict = "weak"
)

// Classify maps a similarity score to a verdict.
func Classify(similarity float64) Verdict {
	switch {
	case similarity >= ConfidentThreshold:
		return VerdictConfident
	case similarity >= PartialThreshold:
		return VerdictPartial
	default:
		return VerdictWeak
	}
}

// Similarity converts a raw distance to a bounded score in (0, 1]:
// 1/(1+d). Monotonically decreasing in distance, 1 at distance zero.
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// Engine runs retrieval queries. Queries are stateless and safe to run
// concurrently against the same collection.
type Engine struct {
	embedder domain.Embedder
	store    vectorstore.Store
}

func NewEngine(embedder domain.Embedder, store vectorstore.Store) *Engine {
	return &Engine{embedder: embedder, store: store}
}

// Retrieve embeds queryText, runs a top-K similarity query against the named
// collection and returns results in non-increasing similarity order. An
// embedding failure is fatal to the call: there is no keyword fallback.
func (e *Engine) Retrieve(ctx context.Context, queryText string, topK int, collection string) ([]domain.SearchResult, error) {
	vec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	n, err := e.store.Count(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCollection, collection)
	}

	qr, err := e.store.Query(ctx, collection, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", collection, err)
	}

	results := make([]domain.SearchResult, len(qr.IDs))
	for i := range qr.IDs {
		r := domain.SearchResult{
			Chunk: domain.Chunk{ID: qr.IDs[i]},
		}
		if i < len(qr.Distances) {
			r.Distance = qr.Distances[i]
		}
		if i < len(qr.Documents) {
			r.Chunk.Text = qr.Documents[i]
		}
		if i < len(qr.Metadatas) {
			r.Chunk.Meta = qr.Metadatas[i]
		}
		r.Similarity = Similarity(r.Distance)
		results[i] = r
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > 0 {
		log.Debug().
			Str("collection", collection).
			Int("results", len(results)).
			Float64("top_similarity", results[0].Similarity).
			Msg("retrieval query")
	}
	return results, nil
}
