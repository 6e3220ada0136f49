// Package ingest walks a corpus directory tree and drives segmentation and
// batch indexing for every source document in it.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuslu/log"

	"tutorrag/internal/domain"
	"tutorrag/internal/indexer"
	"tutorrag/internal/splitter"
	"tutorrag/internal/vectorstore"
)

// Options selects the corpus, target collection and run mode.
type Options struct {
	CorpusDir  string
	Collection string
	// GradeFilter restricts processing to group directories whose name
	// starts with the given prefix.
	GradeFilter string
	// DryRun extracts and segments only, reporting chunk counts without
	// touching the embedding service or the vector store.
	DryRun bool
	// Clear deletes the target collection before the first file.
	Clear bool
}

// Summary is the run-level outcome, printed even when some chunks failed.
type Summary struct {
	Files    int
	Skipped  int
	Chunks   int
	Embedded int
	Failed   int
	Elapsed  time.Duration
}

// Warnings reports whether the run produced any non-fatal failures.
func (s *Summary) Warnings() bool { return s.Failed > 0 || s.Skipped > 0 }

type corpusFile struct {
	group string
	path  string
	name  string
}

// Orchestrator sequences extraction, segmentation and indexing. Fatal
// preconditions (missing corpus, unreachable dependencies) abort before any
// work; per-file failures are logged and skipped.
type Orchestrator struct {
	extractor domain.Extractor
	embedder  domain.Embedder
	store     vectorstore.Store
	split     *splitter.Splitter
	indexer   *indexer.Indexer
}

func NewOrchestrator(extractor domain.Extractor, embedder domain.Embedder, store vectorstore.Store, split *splitter.Splitter, ix *indexer.Indexer) *Orchestrator {
	return &Orchestrator{extractor: extractor, embedder: embedder, store: store, split: split, indexer: ix}
}

func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	files, err := listCorpus(opts.CorpusDir, opts.GradeFilter)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PDF files found under %s", opts.CorpusDir)
	}

	if !opts.DryRun {
		// Fail fast: a dead dependency discovered mid-run would leave a
		// partially ingested collection behind.
		if err := o.embedder.Health(ctx); err != nil {
			return nil, err
		}
		if opts.Clear {
			if err := o.store.DeleteCollection(ctx, opts.Collection); err != nil {
				return nil, fmt.Errorf("clearing collection %q: %w", opts.Collection, err)
			}
			log.Info().Str("collection", opts.Collection).Msg("collection cleared")
		}
		meta := map[string]string{
			"description": "tutoring curriculum chunks",
			"model":       o.embedder.Model(),
		}
		if err := o.store.EnsureCollection(ctx, opts.Collection, meta); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	for _, f := range files {
		info, err := ParseFileName(f.name)
		if err != nil {
			log.Warn().Err(err).Str("file", f.name).Msg("skipping file")
			summary.Skipped++
			continue
		}
		text, pages, err := o.extractor.Extract(ctx, f.path)
		if err != nil {
			log.Warn().Err(err).Str("file", f.name).Msg("extraction failed, skipping file")
			summary.Skipped++
			continue
		}

		chunks := o.buildChunks(f, info, text, pages)
		summary.Files++
		summary.Chunks += len(chunks)
		log.Info().
			Str("file", f.name).
			Str("group", f.group).
			Int("pages", pages).
			Int("chunks", len(chunks)).
			Msg("segmented")

		if opts.DryRun {
			continue
		}
		res, err := o.indexer.Index(ctx, opts.Collection, chunks)
		summary.Embedded += res.Embedded
		summary.Failed += res.Failed
		if err != nil {
			// an upsert failure aborts this file only
			log.Error().Err(err).Str("file", f.name).Msg("file aborted")
			continue
		}
	}
	summary.Elapsed = time.Since(start)
	return summary, nil
}

// buildChunks derives metadata and deterministic IDs for every segment of
// one source file.
func (o *Orchestrator) buildChunks(f corpusFile, info SourceInfo, text string, pages int) []domain.Chunk {
	segs := o.split.Split(text)
	chunks := make([]domain.Chunk, len(segs))
	for i, seg := range segs {
		page := EstimatePage(seg.Offset, len(text), pages)
		chunks[i] = domain.Chunk{
			ID:   ChunkID(f.group, info.Subject, page, i),
			Text: seg.Text,
			Meta: domain.ChunkMetadata{
				Group:        f.group,
				Subject:      info.Subject,
				SubjectLabel: info.SubjectLabel,
				SourceTitle:  info.Title,
				FileName:     f.name,
				Page:         page,
				Ordinal:      i,
			},
		}
	}
	return chunks
}

// listCorpus collects <group>/<file>.pdf entries in deterministic order.
func listCorpus(root, gradeFilter string) ([]corpusFile, error) {
	groups, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("corpus directory: %w", err)
	}
	var files []corpusFile
	for _, g := range groups {
		if !g.IsDir() {
			continue
		}
		if gradeFilter != "" && !strings.HasPrefix(g.Name(), gradeFilter) {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, g.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			files = append(files, corpusFile{
				group: g.Name(),
				path:  filepath.Join(root, g.Name(), e.Name()),
				name:  e.Name(),
			})
		}
	}
	return files, nil
}
