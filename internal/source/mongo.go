package source

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/54b3r/catalograg-go/internal/catalog"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// Mongo reads products from a MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    config.MongoSettings
}

// NewMongo connects to s.URI. The driver connects lazily, so a bad host
// surfaces on the first Ping or Fetch.
func NewMongo(ctx context.Context, s config.MongoSettings) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(s.Database).Collection(s.Collection),
		cfg:    s,
	}, nil
}

// Fetch loads the whole collection into memory in natural order.
func (m *Mongo) Fetch(ctx context.Context) ([]catalog.Product, error) {
	cur, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: find in %s.%s: %w", m.cfg.Database, m.cfg.Collection, err)
	}
	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: read cursor: %w", err)
	}

	products := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, ProductFromDocument(d))
	}
	logging.FromContext(ctx).Info("mongo: products fetched",
		"database", m.cfg.Database,
		"collection", m.cfg.Collection,
		"count", len(products),
	)
	return products, nil
}

// Count returns the number of documents in the collection.
func (m *Mongo) Count(ctx context.Context) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count: %w", err)
	}
	return n, nil
}

// Sample is one raw document and its decoded product.
type Sample struct {
	// JSON is the document as indented relaxed extended JSON.
	JSON string
	// Product is the document as the ETL would see it.
	Product catalog.Product
}

// Sample returns the first document, or nil when the collection is empty.
func (m *Mongo) Sample(ctx context.Context) (*Sample, error) {
	var doc bson.D
	err := m.coll.FindOne(ctx, bson.D{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: sample: %w", err)
	}
	out, err := bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mongo: encode sample: %w", err)
	}
	return &Sample{JSON: string(out), Product: ProductFromDocument(doc)}, nil
}

// Ping round-trips to the primary.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
