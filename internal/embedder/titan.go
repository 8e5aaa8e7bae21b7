package embedder

import (
	"context"
	"fmt"

	"github.com/54b3r/catalograg-go/internal/bedrock"
)

// TitanEmbedder calls an Amazon Titan text embedding model on Bedrock.
// Request: {"inputText": "..."}; response: {"embedding": [...]}.
type TitanEmbedder struct {
	// invoker is the Bedrock runtime client.
	invoker bedrock.Invoker
	// modelID is the Bedrock model identifier.
	modelID string
}

// NewTitanEmbedder constructs a TitanEmbedder for modelID.
func NewTitanEmbedder(invoker bedrock.Invoker, modelID string) *TitanEmbedder {
	return &TitanEmbedder{invoker: invoker, modelID: modelID}
}

// titanRequest is the Titan embedding request body.
type titanRequest struct {
	InputText string `json:"inputText"`
}

// titanResponse is the Titan embedding response body.
type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed returns the Titan embedding of text.
func (e *TitanEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out titanResponse
	if err := bedrock.InvokeJSON(ctx, e.invoker, e.modelID, titanRequest{InputText: text}, &out); err != nil {
		return nil, fmt.Errorf("titan embedder: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("titan embedder: model %s returned an empty embedding", e.modelID)
	}
	return out.Embedding, nil
}
