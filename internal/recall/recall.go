// Package recall stores student interaction transcripts in per-student
// collections and retrieves relevant passages from them, reusing the same
// segmentation, indexing and query machinery as the curriculum path.
package recall

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"tutorrag/internal/domain"
	"tutorrag/internal/indexer"
	"tutorrag/internal/search"
	"tutorrag/internal/splitter"
	"tutorrag/internal/vectorstore"
)

// Service records and recalls interaction memory. Chunk IDs derive from the
// student, a content hash and the ordinal, so re-recording an identical
// transcript is idempotent.
type Service struct {
	split  *splitter.Splitter
	ix     *indexer.Indexer
	engine *search.Engine
	store  vectorstore.Store
}

func NewService(split *splitter.Splitter, ix *indexer.Indexer, engine *search.Engine, store vectorstore.Store) *Service {
	return &Service{split: split, ix: ix, engine: engine, store: store}
}

// CollectionFor names the per-student collection. Chunk IDs are unique only
// within it, never across students.
func CollectionFor(studentID string) string {
	return "student-memory-" + studentID
}

// Record segments the transcript and indexes it into the student's
// collection.
func (s *Service) Record(ctx context.Context, studentID, transcript string) (indexer.Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return indexer.Result{}, nil
	}
	collection := CollectionFor(studentID)
	meta := map[string]string{
		"description": "student interaction memory",
		"student":     studentID,
	}
	if err := s.store.EnsureCollection(ctx, collection, meta); err != nil {
		return indexer.Result{}, err
	}

	key := shortHash(transcript)
	segs := s.split.Split(transcript)
	chunks := make([]domain.Chunk, len(segs))
	for i, seg := range segs {
		chunks[i] = domain.Chunk{
			ID:   fmt.Sprintf("%s-%s-c%04d", studentID, key, i),
			Text: seg.Text,
			Meta: domain.ChunkMetadata{
				Group:        studentID,
				Subject:      "memory",
				SubjectLabel: "Interaction memory",
				SourceTitle:  "Transcript " + key,
				Ordinal:      i,
			},
		}
	}
	return s.ix.Index(ctx, collection, chunks)
}

// Recall retrieves the student's most relevant memory passages for a query.
func (s *Service) Recall(ctx context.Context, studentID, query string, topK int) ([]domain.SearchResult, error) {
	return s.engine.Retrieve(ctx, query, topK, CollectionFor(studentID))
}

func shortHash(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:4])
}
