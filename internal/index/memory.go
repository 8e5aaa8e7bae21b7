package index

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// Memory is an in-process Store using exact cosine similarity. It is meant
// for local development and tests; contents are lost on exit.
type Memory struct {
	mu     sync.RWMutex
	schema Schema
	exists bool
	docs   map[string]document
	now    func() time.Time
}

// NewMemory returns an empty Memory store. The index does not exist until
// CreateIndex is called.
func NewMemory(schema Schema) *Memory {
	return &Memory{schema: schema, docs: make(map[string]document), now: time.Now}
}

// CreateIndex marks the index as existing. Calling it again is a no-op.
func (m *Memory) CreateIndex(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = true
	return nil
}

// DeleteIndex drops the index and its documents.
func (m *Memory) DeleteIndex(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.docs = make(map[string]document)
	return nil
}

// Exists reports whether CreateIndex has been called since the last delete.
func (m *Memory) Exists(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists, nil
}

// Upsert stores a copy of vector under id, replacing any prior document.
func (m *Memory) Upsert(_ context.Context, id string, vector []float32, meta catalog.Metadata) error {
	if err := checkUpsert(id, vector, m.schema.Dimensions); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return ErrIndexNotFound
	}
	m.docs[id] = newDocument(append([]float32(nil), vector...), meta, m.now())
	return nil
}

// Search ranks every document by cosine similarity and returns the top k.
// Ties are broken by id so results are stable.
func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if err := checkVector(vector, m.schema.Dimensions); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return nil, ErrIndexNotFound
	}

	hits := make([]Hit, 0, len(m.docs))
	for id, d := range m.docs {
		hits = append(hits, Hit{ID: id, Score: cosine(vector, d.Vector), Metadata: d.Metadata})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns the stored vector and metadata for id.
func (m *Memory) Get(id string) ([]float32, catalog.Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, catalog.Metadata{}, false
	}
	return append([]float32(nil), d.Vector...), d.Metadata, true
}

// Count returns the number of stored documents.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Name returns "memory".
func (m *Memory) Name() string { return "memory" }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// cosine returns the cosine similarity of a and b, or 0 if either is zero.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
