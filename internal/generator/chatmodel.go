package generator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModelGenerator adapts an eino chat model to [Generator]. The prompt is
// sent as a single user message with the shared decoding parameters.
type ChatModelGenerator struct {
	// model is the underlying eino chat model.
	model model.BaseChatModel
	// name identifies the backend (e.g. "openai").
	name string
	// params are the decoding parameters.
	params Params
}

// NewChatModelGenerator wraps m. name labels the backend in logs and
// readiness checks.
func NewChatModelGenerator(m model.BaseChatModel, name string) *ChatModelGenerator {
	return &ChatModelGenerator{model: m, name: name, params: DefaultParams()}
}

// Generate returns the model's reply to prompt.
func (g *ChatModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx = callbacks.EnsureRunInfo(ctx, g.name, components.ComponentOfChatModel)
	msgs := []*schema.Message{schema.UserMessage(prompt)}
	resp, err := g.model.Generate(ctx, msgs,
		model.WithTemperature(g.params.Temperature),
		model.WithTopP(g.params.TopP),
		model.WithMaxTokens(g.params.MaxTokens),
		model.WithStop(g.params.Stop),
	)
	if err != nil {
		return "", fmt.Errorf("%s generator: %w", g.name, err)
	}
	if resp == nil {
		return Fallback, nil
	}
	return orFallback(resp.Content), nil
}

// Name returns the backend label used in readiness responses.
func (g *ChatModelGenerator) Name() string { return g.name }
