// Package chroma is a minimal REST client to a Chroma vector index.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tutorrag/internal/domain"
	"tutorrag/internal/vectorstore"
)

// Store talks to Chroma's HTTP API. Collections are resolved by name once
// and the returned IDs cached for the lifetime of the client.
type Store struct {
	baseURL string
	client  *http.Client

	mu  sync.Mutex
	ids map[string]string // collection name -> id
}

type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func New(cfg Config) *Store {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		baseURL: fmt.Sprintf("http://%s:%d/api/v1", cfg.Host, cfg.Port),
		client:  &http.Client{Timeout: timeout},
		ids:     make(map[string]string),
	}
}

func (s *Store) EnsureCollection(ctx context.Context, name string, metadata map[string]string) error {
	body := map[string]any{
		"name":          name,
		"get_or_create": true,
	}
	meta := map[string]any{"hnsw:space": "cosine"}
	for k, v := range metadata {
		meta[k] = v
	}
	body["metadata"] = meta

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.postJSON(ctx, s.baseURL+"/collections", body, &resp); err != nil {
		return fmt.Errorf("vector store unreachable or rejected collection %q: %w", name, err)
	}
	s.mu.Lock()
	s.ids[name] = resp.ID
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/collections/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Deleting a collection that does not exist is not an error here.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("chroma DELETE collection %s failed: %s", name, resp.Status)
	}
	s.mu.Lock()
	delete(s.ids, name)
	s.mu.Unlock()
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, batch vectorstore.UpsertBatch) error {
	if len(batch.IDs) != len(batch.Documents) || len(batch.IDs) != len(batch.Metadatas) || len(batch.IDs) != len(batch.Vectors) {
		return fmt.Errorf("upsert batch arrays length mismatch")
	}
	id, err := s.collectionID(ctx, collection)
	if err != nil {
		return err
	}
	embeddings := make([]any, len(batch.Vectors))
	for i, v := range batch.Vectors {
		if v == nil {
			embeddings[i] = nil
			continue
		}
		embeddings[i] = v
	}
	metadatas := make([]map[string]any, len(batch.Metadatas))
	for i, m := range batch.Metadatas {
		metadatas[i] = metaToMap(m)
	}
	body := map[string]any{
		"ids":        batch.IDs,
		"embeddings": embeddings,
		"documents":  batch.Documents,
		"metadatas":  metadatas,
	}
	return s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/upsert", s.baseURL, id), body, nil)
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	id, err := s.collectionID(ctx, collection)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s/count", s.baseURL, id), nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("chroma count failed: %s", resp.Status)
	}
	var n int
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float64, topK int) (vectorstore.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	id, err := s.collectionID(ctx, collection)
	if err != nil {
		return vectorstore.QueryResult{}, err
	}
	body := map[string]any{
		"query_embeddings": [][]float64{vector},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/query", s.baseURL, id), body, &resp); err != nil {
		return vectorstore.QueryResult{}, err
	}
	var out vectorstore.QueryResult
	if len(resp.IDs) == 0 {
		return out, nil
	}
	out.IDs = resp.IDs[0]
	if len(resp.Documents) > 0 {
		out.Documents = resp.Documents[0]
	}
	if len(resp.Distances) > 0 {
		out.Distances = resp.Distances[0]
	}
	if len(resp.Metadatas) > 0 {
		out.Metadatas = make([]domain.ChunkMetadata, len(resp.Metadatas[0]))
		for i, m := range resp.Metadatas[0] {
			out.Metadatas[i] = metaFromMap(m)
		}
	}
	return out, nil
}

// collectionID resolves a collection name to its Chroma ID, caching results.
func (s *Store) collectionID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	id, ok := s.ids[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/collections/"+name, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chroma collection %q lookup failed: %s", name, resp.Status)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.ids[name] = out.ID
	s.mu.Unlock()
	return out.ID, nil
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func metaToMap(m domain.ChunkMetadata) map[string]any {
	return map[string]any{
		"grade":         m.Group,
		"subject":       m.Subject,
		"subject_label": m.SubjectLabel,
		"source":        m.SourceTitle,
		"file":          m.FileName,
		"page":          m.Page,
		"chunk_index":   m.Ordinal,
	}
}

func metaFromMap(m map[string]any) domain.ChunkMetadata {
	out := domain.ChunkMetadata{}
	if v, ok := m["grade"].(string); ok {
		out.Group = v
	}
	if v, ok := m["subject"].(string); ok {
		out.Subject = v
	}
	if v, ok := m["subject_label"].(string); ok {
		out.SubjectLabel = v
	}
	if v, ok := m["source"].(string); ok {
		out.SourceTitle = v
	}
	if v, ok := m["file"].(string); ok {
		out.FileName = v
	}
	if v, ok := m["page"].(float64); ok {
		out.Page = int(v)
	}
	if v, ok := m["chunk_index"].(float64); ok {
		out.Ordinal = int(v)
	}
	return out
}
