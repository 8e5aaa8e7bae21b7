// Package index manages the vector index that product embeddings are stored
// in: index lifecycle, per-document upsert and ANN search. Every backend
// stores the same document shape (vector, metadata, timestamp) and behaves the
// same way at the edges: CreateIndex is idempotent, Upsert overwrites and
// never creates a missing index, and Search returns hits best-first.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// Sentinel errors shared by all backends.
var (
	// ErrEmptyID is returned by Upsert when the document id is empty.
	ErrEmptyID = errors.New("index: document id must not be empty")
	// ErrDimensionMismatch is returned by Upsert and Search when a vector's
	// length differs from the index dimension.
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
	// ErrIndexNotFound is returned when an operation targets a missing index.
	ErrIndexNotFound = errors.New("index: index does not exist")
)

// Store is the vector index contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateIndex creates the index with the fixed schema. An index that
	// already exists is success, not an error.
	CreateIndex(ctx context.Context) error
	// DeleteIndex removes the index and every document in it. Deleting a
	// missing index is a no-op.
	DeleteIndex(ctx context.Context) error
	// Exists reports whether the index exists.
	Exists(ctx context.Context) (bool, error)
	// Upsert stores vector and meta under id, replacing any previous
	// document with the same id.
	Upsert(ctx context.Context, id string, vector []float32, meta catalog.Metadata) error
	// Search returns up to k hits ordered by descending similarity.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Name returns the backend label (e.g. "opensearch").
	Name() string
	// Close releases backend resources.
	Close() error
}

// Counter is implemented by stores that can report their document count.
type Counter interface {
	// Count returns the number of documents in the index.
	Count(ctx context.Context) (int64, error)
}

// Hit is a single search result.
type Hit struct {
	// ID is the product id the document was indexed under.
	ID string
	// Score is the backend's similarity score; higher is closer.
	Score float32
	// Metadata is the stored product metadata.
	Metadata catalog.Metadata
}

// Schema describes the fixed index layout.
type Schema struct {
	// Dimensions is the dense vector length.
	Dimensions int
	// M is the HNSW graph degree.
	M int
	// EfConstruction is the HNSW build-time candidate list size.
	EfConstruction int
	// EfSearch is the HNSW search-time candidate list size.
	EfSearch int
}

// DefaultSchema returns the HNSW schema for vectors of length dims.
func DefaultSchema(dims int) Schema {
	return Schema{
		Dimensions:     dims,
		M:              16,
		EfConstruction: 128,
		EfSearch:       100,
	}
}

// document is the stored unit.
type document struct {
	Vector    []float32        `json:"vector"`
	Metadata  catalog.Metadata `json:"metadata"`
	Timestamp string           `json:"timestamp"`
}

// newDocument builds a document stamped with now in RFC 3339 UTC.
func newDocument(vector []float32, meta catalog.Metadata, now time.Time) document {
	return document{
		Vector:    vector,
		Metadata:  meta,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// checkUpsert validates an upsert against the schema.
func checkUpsert(id string, vector []float32, dims int) error {
	if id == "" {
		return ErrEmptyID
	}
	return checkVector(vector, dims)
}

// checkVector validates a vector's length against the schema.
func checkVector(vector []float32, dims int) error {
	if len(vector) != dims {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), dims)
	}
	return nil
}
