package generator

import (
	"context"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/54b3r/catalograg-go/internal/config"
)

// newOllama constructs a chat model backed by a local Ollama instance.
func newOllama(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error) {
	m, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: s.Endpoint,
		Model:   s.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: ollama: %w", err)
	}
	return m, nil
}

// newOpenAI constructs a chat model backed by the OpenAI API.
func newOpenAI(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("generator: OPENAI_API_KEY is required for openai backend")
	}
	m, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:   s.Model,
		APIKey:  s.APIKey,
		BaseURL: s.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: openai: %w", err)
	}
	return m, nil
}

// newAzure constructs a chat model backed by Azure OpenAI Service.
func newAzure(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error) {
	if s.APIKey == "" || s.Endpoint == "" || s.Model == "" {
		return nil, fmt.Errorf("generator: azure backend needs AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and a deployment")
	}
	m, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		Model:      s.Model,
		APIKey:     s.APIKey,
		BaseURL:    s.Endpoint,
		ByAzure:    true,
		APIVersion: s.APIVersion,
		// Deployment names like "gpt-4.1" must reach Azure unmodified.
		AzureModelMapperFunc: func(model string) string { return model },
	})
	if err != nil {
		return nil, fmt.Errorf("generator: azure: %w", err)
	}
	return m, nil
}

// newArk constructs a chat model backed by the Volcano Engine Ark runtime.
func newArk(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error) {
	m, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
		Model:   s.Model,
		APIKey:  s.APIKey,
		BaseURL: s.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: ark: %w", err)
	}
	return m, nil
}

// newGemini constructs a chat model backed by Google Gemini.
func newGemini(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("generator: GOOGLE_API_KEY is required for gemini backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: failed to create Gemini client: %w", err)
	}
	m, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client: client,
		Model:  s.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: gemini: %w", err)
	}
	return m, nil
}
