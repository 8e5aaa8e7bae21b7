package embedder

import (
	"context"
	"fmt"

	"github.com/54b3r/catalograg-go/internal/bedrock"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// New constructs the configured backend and wraps it in a [Truncating]
// embedder enforcing [MaxTextLength]. dims is passed to backends that let
// the caller choose the output size so vectors match the index.
func New(ctx context.Context, s config.ModelSettings, dims int, observer logging.Observer) (*Truncating, error) {
	var backend Embedder

	switch s.Provider {
	case config.ProviderBedrock:
		client, err := bedrock.NewClient(ctx, s.Region)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		backend = NewTitanEmbedder(client, s.Model)

	case config.ProviderOpenAI:
		if s.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		backend = NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     s.APIKey,
			BaseURL:    s.Endpoint,
			Model:      s.Model,
			Dimensions: dims,
		})

	case config.ProviderOllama:
		backend = NewOllamaEmbedder(&OllamaConfig{
			Host:  s.Endpoint,
			Model: s.Model,
		})

	default:
		return nil, fmt.Errorf("embedder: unknown provider %q (valid: bedrock, openai, ollama)", s.Provider)
	}

	return NewTruncating(backend, MaxTextLength, observer), nil
}
