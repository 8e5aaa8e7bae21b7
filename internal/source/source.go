// Package source reads product records from the catalogue database.
package source

import (
	"context"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// Source yields the full product catalogue.
type Source interface {
	// Fetch returns every product in the collection. An empty collection is
	// not an error.
	Fetch(ctx context.Context) ([]catalog.Product, error)
	// Ping checks that the database answers.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// Static is a Source over a fixed slice. It backs tests and dry runs.
type Static struct {
	// Products is returned by every Fetch.
	Products []catalog.Product
	// Err, when set, is returned by Fetch instead of Products.
	Err error
}

// Fetch returns s.Products or s.Err.
func (s *Static) Fetch(_ context.Context) ([]catalog.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Products, nil
}

// Ping always succeeds.
func (s *Static) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Static) Close(_ context.Context) error { return nil }
