// Package memory is an in-process vector store using brute-force cosine
// distance. It backs local runs without a Chroma instance and doubles as the
// test store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"tutorrag/internal/domain"
	"tutorrag/internal/vectorstore"
)

type entry struct {
	vector []float64 // nil if embedding failed for this chunk
	doc    string
	meta   domain.ChunkMetadata
}

type collection struct {
	entries map[string]entry
}

// Store holds named collections guarded by one lock; queries are read-only
// and safe to run concurrently.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) EnsureCollection(ctx context.Context, name string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collection{entries: make(map[string]entry)}
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, batch vectorstore.UpsertBatch) error {
	if len(batch.IDs) != len(batch.Vectors) || len(batch.IDs) != len(batch.Documents) || len(batch.IDs) != len(batch.Metadatas) {
		return fmt.Errorf("upsert batch arrays length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %q does not exist", name)
	}
	for i, id := range batch.IDs {
		c.entries[id] = entry{vector: batch.Vectors[i], doc: batch.Documents[i], meta: batch.Metadatas[i]}
	}
	return nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", name)
	}
	return len(c.entries), nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float64, topK int) (vectorstore.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return vectorstore.QueryResult{}, fmt.Errorf("collection %q does not exist", name)
	}
	type scored struct {
		id       string
		distance float64
	}
	hits := make([]scored, 0, len(c.entries))
	for id, e := range c.entries {
		if e.vector == nil {
			// unembedded chunks are counted but not searchable
			continue
		}
		hits = append(hits, scored{id: id, distance: cosineDistance(vector, e.vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance == hits[j].distance {
			return hits[i].id < hits[j].id
		}
		return hits[i].distance < hits[j].distance
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	var out vectorstore.QueryResult
	for _, h := range hits[:topK] {
		e := c.entries[h.id]
		out.IDs = append(out.IDs, h.id)
		out.Documents = append(out.Documents, e.doc)
		out.Metadatas = append(out.Metadatas, e.meta)
		out.Distances = append(out.Distances, h.distance)
	}
	return out, nil
}

func cosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
