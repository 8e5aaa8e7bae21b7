package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// pointNamespace seeds the deterministic point UUIDs. Qdrant only accepts
// UUIDs or unsigned integers as point ids, so product ids are hashed into
// this namespace and the original id is kept in the payload.
var pointNamespace = uuid.MustParse("6f1d8f8e-4b7a-4c55-9a0e-3c2b7d1e5a90")

// Payload keys written alongside every point.
const (
	payloadProductID = "product_id"
	payloadMetadata  = "metadata"
	payloadTimestamp = "timestamp"
)

// QdrantConfig holds connection parameters for a Qdrant collection.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection products are stored in.
	Collection string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Schema is the collection layout.
	Schema Schema
}

// QdrantStore implements Store backed by a Qdrant collection.
type QdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
	now    func() time.Time
}

// NewQdrantStore connects to Qdrant. The collection is not created; call
// CreateIndex for that.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}
	return &QdrantStore{client: client, cfg: cfg, now: time.Now}, nil
}

// CreateIndex creates the collection with cosine distance and the schema's
// HNSW parameters. An existing collection is left untouched.
func (s *QdrantStore) CreateIndex(ctx context.Context) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.cfg.Schema.Dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			M:           qdrant.PtrOf(uint64(s.cfg.Schema.M)),
			EfConstruct: qdrant.PtrOf(uint64(s.cfg.Schema.EfConstruction)),
		},
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// DeleteIndex drops the collection. A missing collection is not an error.
func (s *QdrantStore) DeleteIndex(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil && !isNotFound(err) {
		return fmt.Errorf("qdrant: failed to delete collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// Exists reports whether the collection exists.
func (s *QdrantStore) Exists(ctx context.Context) (bool, error) {
	ok, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return false, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	return ok, nil
}

// Upsert writes one point and waits for it to be applied.
func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, meta catalog.Metadata) error {
	if err := checkUpsert(id, vector, s.cfg.Schema.Dimensions); err != nil {
		return err
	}

	payload, err := qdrant.TryValueMap(pointPayload(id, meta, s.now()))
	if err != nil {
		return fmt.Errorf("qdrant: encode payload for %q: %w", id, err)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID(id)),
			Vectors: qdrant.NewVectors(vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return opError(fmt.Sprintf("upsert %q", id), err)
	}
	return nil
}

// Search runs an HNSW query and returns the top-k hits with payloads.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := checkVector(vector, s.cfg.Schema.Dimensions); err != nil {
		return nil, err
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Params:         &qdrant.SearchParams{HnswEf: qdrant.PtrOf(uint64(s.cfg.Schema.EfSearch))},
	})
	if err != nil {
		return nil, opError("search", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hitFromPoint(r))
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int64(n), nil
}

// Ping calls the Qdrant health check endpoint.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Name returns "qdrant".
func (s *QdrantStore) Name() string { return "qdrant" }

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointID maps a product id to its deterministic point UUID.
func pointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// pointPayload builds the payload map stored with a point.
func pointPayload(id string, meta catalog.Metadata, now time.Time) map[string]any {
	m := map[string]any{
		"id":   meta.ID,
		"text": meta.Text,
	}
	if meta.Name != "" {
		m["name"] = meta.Name
	}
	if meta.Category != "" {
		m["category"] = meta.Category
	}
	if meta.Brand != "" {
		m["brand"] = meta.Brand
	}
	if meta.Price != nil {
		m["price"] = *meta.Price
	}
	return map[string]any{
		payloadProductID: id,
		payloadMetadata:  m,
		payloadTimestamp: newDocument(nil, meta, now).Timestamp,
	}
}

// hitFromPoint decodes a scored point written by Upsert.
func hitFromPoint(p *qdrant.ScoredPoint) Hit {
	h := Hit{ID: p.GetId().GetUuid(), Score: p.GetScore()}
	payload := p.GetPayload()
	if v, ok := payload[payloadProductID]; ok {
		h.ID = v.GetStringValue()
	}
	fields := payload[payloadMetadata].GetStructValue().GetFields()
	h.Metadata = catalog.Metadata{
		ID:       fields["id"].GetStringValue(),
		Name:     fields["name"].GetStringValue(),
		Category: fields["category"].GetStringValue(),
		Brand:    fields["brand"].GetStringValue(),
		Text:     fields["text"].GetStringValue(),
	}
	if v, ok := fields["price"]; ok {
		price := v.GetDoubleValue()
		if iv, isInt := v.GetKind().(*qdrant.Value_IntegerValue); isInt {
			price = float64(iv.IntegerValue)
		}
		h.Metadata.Price = &price
	}
	return h
}

// isAlreadyExists reports whether err is Qdrant's "collection already
// exists" failure.
func isAlreadyExists(err error) bool {
	if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isNotFound reports whether err is a missing-collection failure. gRPC
// errors are judged by their status code alone; other errors only when the
// message names a collection that does not exist, so transport failures like
// "host not found" are never mistaken for a missing index.
func isNotFound(err error) bool {
	if errors.Is(err, ErrIndexNotFound) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.NotFound
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "collection") && strings.Contains(msg, "doesn't exist")
}

// opError wraps a failed data-plane call. A missing collection matches
// [ErrIndexNotFound] and keeps the cause.
func opError(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("qdrant: %s: %w: %w", op, ErrIndexNotFound, err)
	}
	return fmt.Errorf("qdrant: %s failed: %w", op, err)
}
