package recall

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorrag/internal/indexer"
	"tutorrag/internal/search"
	"tutorrag/internal/splitter"
	"tutorrag/internal/vectorstore/memory"
)

// hashEmbedder returns a deterministic vector per text, so identical text
// always lands at distance zero from itself.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	sum := sha1.Sum([]byte(text))
	vec := make([]float64, 8)
	for i := range vec {
		vec[i] = float64(binary.BigEndian.Uint16(sum[i*2:])) + 1
	}
	return vec, nil
}
func (hashEmbedder) Health(ctx context.Context) error { return nil }
func (hashEmbedder) Model() string                    { return "hash" }

func newService(store *memory.Store) *Service {
	split := splitter.New(200, 40)
	ix := indexer.New(hashEmbedder{}, store, indexer.Options{BatchSize: 8, AllowUnembedded: true}, nil)
	return NewService(split, ix, search.NewEngine(hashEmbedder{}, store), store)
}

func TestRecordAndRecall(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	transcript := "Student struggled with adding fractions with unlike denominators. " +
		"We practiced finding common denominators using 1/3 + 1/4."
	res, err := svc.Record(ctx, "s-42", transcript)
	require.NoError(t, err)
	require.Positive(t, res.Embedded)
	assert.Zero(t, res.Failed)

	results, err := svc.Recall(ctx, "s-42", transcript, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "s-42", results[0].Chunk.Meta.Group)
	assert.Equal(t, "Interaction memory", results[0].Chunk.Meta.SubjectLabel)
}

func TestRecord_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	transcript := strings.Repeat("Reviewed quadratic equations and factoring. ", 10)
	_, err := svc.Record(ctx, "s-1", transcript)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "s-1", transcript)
	require.NoError(t, err)

	n, err := store.Count(ctx, CollectionFor("s-1"))
	require.NoError(t, err)
	segs := splitter.New(200, 40).Split(transcript)
	assert.Equal(t, len(segs), n)
}

func TestRecall_IsolatedPerStudent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	_, err := svc.Record(ctx, "s-1", "Worked on essay structure and thesis statements.")
	require.NoError(t, err)

	_, err = svc.Recall(ctx, "s-2", "essay", 3)
	require.Error(t, err, "student with no memory has no collection")
}

func TestRecord_EmptyTranscript(t *testing.T) {
	svc := newService(memory.New())
	res, err := svc.Record(context.Background(), "s-1", "   \n")
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}
