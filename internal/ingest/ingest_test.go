package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorrag/internal/domain"
	"tutorrag/internal/indexer"
	"tutorrag/internal/splitter"
	"tutorrag/internal/vectorstore"
	"tutorrag/internal/vectorstore/memory"
)

// fakeExtractor serves canned text per file base name.
type fakeExtractor struct {
	texts map[string]string // base name -> text
	pages int
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (string, int, error) {
	f.calls++
	text, ok := f.texts[filepath.Base(path)]
	if !ok {
		return "", 0, errors.New("parse failure")
	}
	return text, f.pages, nil
}

// countingEmbedder tracks network-call volume for dry-run assertions. Embed
// runs on the indexer's worker pool, so the counters are atomic.
type countingEmbedder struct {
	embedCalls  atomic.Int64
	healthCalls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.embedCalls.Add(1)
	return []float64{1, float64(len(text))}, nil
}

func (c *countingEmbedder) Health(ctx context.Context) error {
	c.healthCalls.Add(1)
	return nil
}

func (c *countingEmbedder) Model() string { return "fake" }

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	}
	return root
}

func newOrchestrator(ext *fakeExtractor, emb *countingEmbedder, store *memory.Store) *Orchestrator {
	split := splitter.New(100, 20)
	ix := indexer.New(emb, store, indexer.Options{BatchSize: 4, AllowUnembedded: true}, nil)
	return NewOrchestrator(ext, emb, store, split, ix)
}

func seedBatch(id string) vectorstore.UpsertBatch {
	return vectorstore.UpsertBatch{
		IDs:       []string{id},
		Vectors:   [][]float64{{1, 1}},
		Documents: []string{"stale"},
		Metadatas: []domain.ChunkMetadata{{}},
	}
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    SourceInfo
		wantErr bool
	}{
		{
			name: "math-7-fractions.pdf",
			want: SourceInfo{Subject: "math", SubjectLabel: "Mathematics", Grade: "7", Title: "Mathematics, Grade 7: Fractions"},
		},
		{
			name: "phys-9.pdf",
			want: SourceInfo{Subject: "phys", SubjectLabel: "Physics", Grade: "9", Title: "Physics, Grade 9"},
		},
		{
			name: "astro-8.pdf",
			want: SourceInfo{Subject: "astro", SubjectLabel: "Astro", Grade: "8", Title: "Astro, Grade 8"},
		},
		{name: "notes.pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileName(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimatePage(t *testing.T) {
	assert.Equal(t, 1, EstimatePage(0, 1000, 10))
	assert.Equal(t, 6, EstimatePage(500, 1000, 10))
	assert.Equal(t, 10, EstimatePage(999, 1000, 10))
	assert.Equal(t, 10, EstimatePage(1000, 1000, 10)) // clamped
	assert.Equal(t, 1, EstimatePage(50, 0, 10))
	assert.Equal(t, 1, EstimatePage(50, 100, 0))
}

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("grade-7", "math", 12, 3)
	b := ChunkID("grade-7", "math", 12, 3)
	assert.Equal(t, "grade-7-math-p012-c0003", a)
	assert.Equal(t, a, b)
}

func TestRun_DryRunMatchesRealRun(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("The water cycle moves water around the planet. ", 30)
	files := map[string]string{"grade-7/geo-7-water.pdf": text}
	root := writeCorpus(t, files)
	ext := &fakeExtractor{texts: map[string]string{"geo-7-water.pdf": text}, pages: 12}

	// dry run: chunk counts only, zero network calls
	dryEmb := &countingEmbedder{}
	dry, err := newOrchestrator(ext, dryEmb, memory.New()).Run(ctx, Options{
		CorpusDir: root, Collection: "curriculum", DryRun: true,
	})
	require.NoError(t, err)
	assert.Zero(t, dryEmb.embedCalls.Load())
	assert.Zero(t, dryEmb.healthCalls.Load())
	assert.Zero(t, dry.Embedded)

	// real run against the in-memory store
	realEmb := &countingEmbedder{}
	store := memory.New()
	real, err := newOrchestrator(ext, realEmb, store).Run(ctx, Options{
		CorpusDir: root, Collection: "curriculum",
	})
	require.NoError(t, err)
	assert.Equal(t, dry.Chunks, real.Chunks)
	assert.Equal(t, real.Chunks, real.Embedded)
	assert.EqualValues(t, 1, realEmb.healthCalls.Load())

	n, err := store.Count(ctx, "curriculum")
	require.NoError(t, err)
	assert.Equal(t, real.Chunks, n)
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("Photosynthesis converts light into chemical energy. ", 25)
	root := writeCorpus(t, map[string]string{"grade-8/biol-8.pdf": text})
	ext := &fakeExtractor{texts: map[string]string{"biol-8.pdf": text}, pages: 5}
	store := memory.New()

	opts := Options{CorpusDir: root, Collection: "curriculum"}
	first, err := newOrchestrator(ext, &countingEmbedder{}, store).Run(ctx, opts)
	require.NoError(t, err)
	_, err = newOrchestrator(ext, &countingEmbedder{}, store).Run(ctx, opts)
	require.NoError(t, err)

	n, err := store.Count(ctx, "curriculum")
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, n, "re-ingestion must not duplicate chunks")
}

func TestRun_GradeFilter(t *testing.T) {
	ctx := context.Background()
	root := writeCorpus(t, map[string]string{
		"grade-7/math-7.pdf": "",
		"grade-9/math-9.pdf": "",
	})
	ext := &fakeExtractor{texts: map[string]string{
		"math-7.pdf": "seventh grade algebra",
		"math-9.pdf": "ninth grade geometry",
	}, pages: 1}

	sum, err := newOrchestrator(ext, &countingEmbedder{}, memory.New()).Run(ctx, Options{
		CorpusDir: root, Collection: "curriculum", GradeFilter: "grade-7",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 1, ext.calls)
}

func TestRun_ExtractionFailureSkipsFile(t *testing.T) {
	ctx := context.Background()
	root := writeCorpus(t, map[string]string{
		"grade-7/math-7.pdf": "",
		"grade-7/chem-7.pdf": "",
	})
	// chem-7.pdf has no canned text, so extraction fails for it
	ext := &fakeExtractor{texts: map[string]string{"math-7.pdf": "algebra basics"}, pages: 1}

	sum, err := newOrchestrator(ext, &countingEmbedder{}, memory.New()).Run(ctx, Options{
		CorpusDir: root, Collection: "curriculum",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 1, sum.Skipped)
	assert.True(t, sum.Warnings())
}

func TestRun_MissingCorpusIsFatal(t *testing.T) {
	_, err := newOrchestrator(&fakeExtractor{}, &countingEmbedder{}, memory.New()).
		Run(context.Background(), Options{CorpusDir: "/nonexistent/corpus", Collection: "c"})
	require.Error(t, err)
}

func TestRun_EmptyCorpusIsFatal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "grade-7"), 0o755))
	_, err := newOrchestrator(&fakeExtractor{}, &countingEmbedder{}, memory.New()).
		Run(context.Background(), Options{CorpusDir: root, Collection: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF files")
}

func TestRun_ClearDeletesBeforeIngesting(t *testing.T) {
	ctx := context.Background()
	text := "Stale content from an earlier run that should disappear."
	root := writeCorpus(t, map[string]string{"grade-7/hist-7.pdf": ""})
	ext := &fakeExtractor{texts: map[string]string{"hist-7.pdf": text}, pages: 1}
	store := memory.New()

	// seed with an entry that the clear must remove
	require.NoError(t, store.EnsureCollection(ctx, "curriculum", nil))
	require.NoError(t, store.Upsert(ctx, "curriculum", seedBatch("stale-id")))

	sum, err := newOrchestrator(ext, &countingEmbedder{}, store).Run(ctx, Options{
		CorpusDir: root, Collection: "curriculum", Clear: true,
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, "curriculum")
	require.NoError(t, err)
	assert.Equal(t, sum.Chunks, n)
}
