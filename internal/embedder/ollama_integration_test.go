//go:build integration

package embedder

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestOllamaEmbedder_Integration performs a real HTTP call to a locally running
// Ollama instance.
//
// Prerequisites:
//
//	ollama pull nomic-embed-text
//	ollama serve
//
// Run with:
//
//	go test -tags=integration -run TestOllamaEmbedder_Integration ./internal/embedder/
func TestOllamaEmbedder_Integration(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}

	emb := NewTruncating(NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), MaxTextLength, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vec, err := emb.Embed(ctx, "Product: Trail Runner 2\nBrand: Acme\nPrice: $129.99")
	if err != nil {
		t.Fatalf("Embed failed (is Ollama running at %s?): %v", host, err)
	}
	if len(vec) == 0 {
		t.Fatal("expected a non-empty embedding")
	}
	t.Logf("embedding dimensions: %d", len(vec))
}
