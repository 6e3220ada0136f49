// Package indexer drives the embedding client and vector store gateway over
// a stream of chunks, one fixed-size batch at a time.
package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/phuslu/log"

	"tutorrag/internal/domain"
	"tutorrag/internal/vectorstore"
)

const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
)

// Progress is emitted once per chunk after its batch settles. Ordinal
// identifies the chunk so renderers tolerate any interleaving.
type Progress struct {
	Batch   int // 1-based
	Batches int
	Ordinal int
	OK      bool
}

// ProgressFunc receives incremental progress during an indexing run. It is
// the only user-visible feedback during a potentially multi-hour ingestion.
type ProgressFunc func(Progress)

// Options tune batching and the unembedded-chunk policy.
type Options struct {
	BatchSize int
	Workers   int
	// AllowUnembedded keeps chunks whose embedding failed: they are
	// upserted with text and metadata but no vector, so they stay visible
	// to metadata listing while being invisible to similarity search.
	AllowUnembedded bool
}

// Result aggregates per-chunk outcomes across all batches.
type Result struct {
	Total    int
	Embedded int
	Failed   int
}

// Indexer embeds chunks batch by batch and upserts each batch once.
type Indexer struct {
	embedder domain.Embedder
	store    vectorstore.Store
	opts     Options
	progress ProgressFunc
}

func New(embedder domain.Embedder, store vectorstore.Store, opts Options, progress ProgressFunc) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Indexer{embedder: embedder, store: store, opts: opts, progress: progress}
}

// Index processes chunks in fixed-size batches. A per-chunk embedding
// failure is counted and (under AllowUnembedded) the chunk is still stored;
// an upsert failure is returned and aborts the remaining batches, leaving
// the caller to decide what that aborts (typically the current file).
func (ix *Indexer) Index(ctx context.Context, collection string, chunks []domain.Chunk) (Result, error) {
	res := Result{Total: len(chunks)}
	if len(chunks) == 0 {
		return res, nil
	}
	bs := ix.opts.BatchSize
	batches := (len(chunks) + bs - 1) / bs

	for b := 0; b < batches; b++ {
		start := b * bs
		end := start + bs
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors := make([][]float64, len(batch))
		errs := make([]error, len(batch))

		// One embedding call per chunk, on a bounded worker pool. The
		// upsert below waits for every attempt in the batch to settle.
		sem := make(chan struct{}, ix.opts.Workers)
		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				vectors[i], errs[i] = ix.embedder.Embed(ctx, batch[i].Text)
			}(i)
		}
		wg.Wait()

		up := vectorstore.UpsertBatch{}
		for i, chunk := range batch {
			ok := errs[i] == nil
			if ok {
				res.Embedded++
			} else {
				res.Failed++
				vectors[i] = nil
				log.Warn().Err(errs[i]).Str("chunk_id", chunk.ID).Msg("embedding failed")
				if !ix.opts.AllowUnembedded {
					ix.emit(Progress{Batch: b + 1, Batches: batches, Ordinal: chunk.Meta.Ordinal, OK: false})
					continue
				}
			}
			up.IDs = append(up.IDs, chunk.ID)
			up.Vectors = append(up.Vectors, vectors[i])
			up.Documents = append(up.Documents, chunk.Text)
			up.Metadatas = append(up.Metadatas, chunk.Meta)
			ix.emit(Progress{Batch: b + 1, Batches: batches, Ordinal: chunk.Meta.Ordinal, OK: ok})
		}

		if len(up.IDs) > 0 {
			if err := ix.store.Upsert(ctx, collection, up); err != nil {
				return res, fmt.Errorf("upsert batch %d/%d: %w", b+1, batches, err)
			}
		}
		log.Debug().
			Int("batch", b+1).
			Int("batches", batches).
			Int("chunks", len(batch)).
			Msg("batch indexed")
	}
	return res, nil
}

func (ix *Indexer) emit(p Progress) {
	if ix.progress != nil {
		ix.progress(p)
	}
}
