package generator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/catalograg-go/internal/bedrock"
)

// ClaudeGenerator calls an Anthropic Claude text-completion model on Bedrock.
type ClaudeGenerator struct {
	// invoker is the Bedrock runtime client.
	invoker bedrock.Invoker
	// modelID is the Bedrock model identifier (e.g. "anthropic.claude-v2:1").
	modelID string
	// params are the decoding parameters.
	params Params
}

// NewClaudeGenerator constructs a ClaudeGenerator using [DefaultParams].
func NewClaudeGenerator(invoker bedrock.Invoker, modelID string) *ClaudeGenerator {
	return &ClaudeGenerator{invoker: invoker, modelID: modelID, params: DefaultParams()}
}

// claudeRequest is the text-completion request body.
type claudeRequest struct {
	Prompt            string   `json:"prompt"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float32  `json:"temperature"`
	TopK              int      `json:"top_k"`
	TopP              float32  `json:"top_p"`
	StopSequences     []string `json:"stop_sequences"`
}

// claudeResponse is the text-completion response body.
type claudeResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}

// formatTurn wraps prompt in the Human/Assistant turn markers the
// text-completion API requires.
func formatTurn(prompt string) string {
	return "\n\nHuman: " + prompt + "\n\nAssistant:"
}

// Generate returns Claude's completion for prompt. The call is reported to
// any registered eino callback handlers (Langfuse tracing) as a chat model
// run, like the eino-backed generators.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx = callbacks.EnsureRunInfo(ctx, "BedrockClaude", components.ComponentOfChatModel)
	cfg := &model.Config{
		Model:       g.modelID,
		MaxTokens:   g.params.MaxTokens,
		Temperature: g.params.Temperature,
		TopP:        g.params.TopP,
		Stop:        g.params.Stop,
	}
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: []*schema.Message{schema.UserMessage(prompt)},
		Config:   cfg,
	})

	req := claudeRequest{
		Prompt:            formatTurn(prompt),
		MaxTokensToSample: g.params.MaxTokens,
		Temperature:       g.params.Temperature,
		TopK:              g.params.TopK,
		TopP:              g.params.TopP,
		StopSequences:     g.params.Stop,
	}

	var out claudeResponse
	if err := bedrock.InvokeJSON(ctx, g.invoker, g.modelID, req, &out); err != nil {
		err = fmt.Errorf("claude generator: %w", err)
		callbacks.OnError(ctx, err)
		return "", err
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message: schema.AssistantMessage(out.Completion, nil),
		Config:  cfg,
	})
	return orFallback(out.Completion), nil
}

// Name returns the backend label used in readiness responses.
func (g *ClaudeGenerator) Name() string { return "bedrock" }
