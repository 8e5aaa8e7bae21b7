package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// OpenSearchConfig holds connection parameters for an OpenSearch k-NN index.
type OpenSearchConfig struct {
	// Endpoint is the cluster URL, e.g. https://search-products.us-east-1.es.amazonaws.com.
	Endpoint string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string

	// Index is the index name.
	Index string

	// Schema is the index layout.
	Schema Schema
}

// knownTTL is how long a successful existence check is trusted by Upsert.
const knownTTL = 30 * time.Second

// OpenSearchStore implements Store on an OpenSearch k-NN index.
//
// OpenSearch creates missing indices on write with a dynamic mapping, so
// Upsert checks that the index exists first. The answer is cached for
// knownTTL and dropped as soon as any call reports index_not_found_exception.
// An index deleted by another process inside that window can still be
// auto-created by a write; clusters that must never auto-create should also
// set action.auto_create_index to false.
type OpenSearchStore struct {
	client *opensearchapi.Client
	cfg    OpenSearchConfig
	now    func() time.Time

	// verifiedAt is the UnixNano time the index was last seen to exist, or 0.
	verifiedAt atomic.Int64
}

// NewOpenSearchStore builds a client for cfg.Endpoint. No request is sent.
func NewOpenSearchStore(cfg OpenSearchConfig) (*OpenSearchStore, error) {
	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: []string{cfg.Endpoint},
			Username:  cfg.Username,
			Password:  cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch: failed to create client: %w", err)
	}
	return &OpenSearchStore{client: client, cfg: cfg, now: time.Now}, nil
}

// CreateIndex creates the k-NN index. resource_already_exists_exception is
// treated as success.
func (s *OpenSearchStore) CreateIndex(ctx context.Context) error {
	body, err := json.Marshal(indexBody(s.cfg.Schema))
	if err != nil {
		return fmt.Errorf("opensearch: encode index body: %w", err)
	}
	_, err = s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: s.cfg.Index,
		Body:  bytes.NewReader(body),
	})
	if err != nil && !isResourceExists(err) {
		return fmt.Errorf("opensearch: failed to create index %q: %w", s.cfg.Index, err)
	}
	s.markKnown()
	return nil
}

// DeleteIndex deletes the index. A missing index is not an error.
func (s *OpenSearchStore) DeleteIndex(ctx context.Context) error {
	s.forget()
	_, err := s.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{s.cfg.Index}})
	if err != nil && !isIndexMissing(err) {
		return fmt.Errorf("opensearch: failed to delete index %q: %w", s.cfg.Index, err)
	}
	return nil
}

// Exists issues a HEAD request for the index.
func (s *OpenSearchStore) Exists(ctx context.Context) (bool, error) {
	resp, err := s.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{s.cfg.Index}})
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusOK:
			s.markKnown()
			return true, nil
		case http.StatusNotFound:
			s.forget()
			return false, nil
		}
	}
	if err != nil {
		return false, fmt.Errorf("opensearch: failed to check index %q: %w", s.cfg.Index, err)
	}
	if resp == nil {
		return false, fmt.Errorf("opensearch: empty response checking index %q", s.cfg.Index)
	}
	return false, fmt.Errorf("opensearch: unexpected status checking index %q: %d", s.cfg.Index, resp.StatusCode)
}

// Upsert indexes one document under id, overwriting any previous version.
// The index must already exist; OpenSearch auto-creation is not relied on.
func (s *OpenSearchStore) Upsert(ctx context.Context, id string, vector []float32, meta catalog.Metadata) error {
	if err := checkUpsert(id, vector, s.cfg.Schema.Dimensions); err != nil {
		return err
	}
	if !s.isKnown() {
		ok, err := s.Exists(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("opensearch: upsert %q into %q: %w", id, s.cfg.Index, ErrIndexNotFound)
		}
	}

	body, err := json.Marshal(newDocument(vector, meta, s.now()))
	if err != nil {
		return fmt.Errorf("opensearch: encode document %q: %w", id, err)
	}
	_, err = s.client.Index(ctx, opensearchapi.IndexReq{
		Index:      s.cfg.Index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	})
	if err != nil {
		if isIndexMissing(err) {
			s.forget()
			return fmt.Errorf("opensearch: upsert %q into %q: %w: %w", id, s.cfg.Index, ErrIndexNotFound, err)
		}
		return fmt.Errorf("opensearch: upsert %q failed: %w", id, err)
	}
	return nil
}

// Search runs an approximate k-NN query and returns hits best-first.
func (s *OpenSearchStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := checkVector(vector, s.cfg.Schema.Dimensions); err != nil {
		return nil, err
	}
	body, err := json.Marshal(knnQuery(vector, k))
	if err != nil {
		return nil, fmt.Errorf("opensearch: encode query: %w", err)
	}

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.cfg.Index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		if isIndexMissing(err) {
			s.forget()
			return nil, fmt.Errorf("opensearch: search %q: %w: %w", s.cfg.Index, ErrIndexNotFound, err)
		}
		return nil, fmt.Errorf("opensearch: search failed: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hit, err := decodeHit(h.ID, h.Score, h.Source)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *OpenSearchStore) markKnown() { s.verifiedAt.Store(s.now().UnixNano()) }

func (s *OpenSearchStore) forget() { s.verifiedAt.Store(0) }

// isKnown reports whether the index was seen to exist within knownTTL.
func (s *OpenSearchStore) isKnown() bool {
	at := s.verifiedAt.Load()
	return at != 0 && s.now().Sub(time.Unix(0, at)) < knownTTL
}

// Count returns the number of documents in the index.
func (s *OpenSearchStore) Count(ctx context.Context) (int64, error) {
	resp, err := s.client.Indices.Count(ctx, &opensearchapi.IndicesCountReq{Indices: []string{s.cfg.Index}})
	if err != nil {
		return 0, fmt.Errorf("opensearch: count failed: %w", err)
	}
	return int64(resp.Count), nil
}

// Ping checks that the cluster answers.
func (s *OpenSearchStore) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, nil)
	if err != nil {
		return fmt.Errorf("opensearch: ping failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("opensearch: ping returned %s", resp.Status())
	}
	return nil
}

// Name returns "opensearch".
func (s *OpenSearchStore) Name() string { return "opensearch" }

// Close is a no-op; the HTTP transport is shared.
func (s *OpenSearchStore) Close() error { return nil }

// indexBody is the create-index request: k-NN enabled, an HNSW vector field
// with cosine similarity, a metadata object and a timestamp.
func indexBody(schema Schema) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"knn":                      true,
				"knn.algo_param.ef_search": schema.EfSearch,
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"vector": map[string]any{
					"type":      "knn_vector",
					"dimension": schema.Dimensions,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": "cosinesimil",
						"engine":     "nmslib",
						"parameters": map[string]any{
							"ef_construction": schema.EfConstruction,
							"m":               schema.M,
						},
					},
				},
				"metadata": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":       map[string]any{"type": "keyword"},
						"name":     map[string]any{"type": "text"},
						"category": map[string]any{"type": "keyword"},
						"brand":    map[string]any{"type": "keyword"},
						"price":    map[string]any{"type": "float"},
						"text":     map[string]any{"type": "text"},
					},
				},
				"timestamp": map[string]any{"type": "date"},
			},
		},
	}
}

// knnQuery is the search request for the k nearest neighbours of vector.
// The vector itself is excluded from the returned source.
func knnQuery(vector []float32, k int) map[string]any {
	return map[string]any{
		"size": k,
		"_source": map[string]any{
			"excludes": []string{"vector"},
		},
		"query": map[string]any{
			"knn": map[string]any{
				"vector": map[string]any{
					"vector": vector,
					"k":      k,
				},
			},
		},
	}
}

// decodeHit turns a raw search hit into a Hit.
func decodeHit(id string, score float32, source json.RawMessage) (Hit, error) {
	var doc document
	if len(source) > 0 {
		if err := json.Unmarshal(source, &doc); err != nil {
			return Hit{}, fmt.Errorf("opensearch: decode hit %q: %w", id, err)
		}
	}
	return Hit{ID: id, Score: score, Metadata: doc.Metadata}, nil
}

// isResourceExists reports whether err is resource_already_exists_exception.
func isResourceExists(err error) bool {
	var se *opensearch.StructError
	if errors.As(err, &se) && se.Err.Type == "resource_already_exists_exception" {
		return true
	}
	return strings.Contains(err.Error(), "resource_already_exists_exception")
}

// isIndexMissing reports whether err is index_not_found_exception.
func isIndexMissing(err error) bool {
	var se *opensearch.StructError
	if errors.As(err, &se) && (se.Err.Type == "index_not_found_exception" || se.Status == http.StatusNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "index_not_found_exception")
}
