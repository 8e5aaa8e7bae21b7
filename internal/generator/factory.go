package generator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/catalograg-go/internal/bedrock"
	"github.com/54b3r/catalograg-go/internal/config"
)

// Backend is a Generator that can name itself for readiness reporting.
type Backend interface {
	Generator
	// Name returns the backend label (e.g. "bedrock", "openai").
	Name() string
}

// chatModelCtor builds an eino chat model from settings.
type chatModelCtor func(ctx context.Context, s config.ModelSettings) (model.BaseChatModel, error)

// chatModelBackends maps provider names to eino constructors.
var chatModelBackends = map[string]chatModelCtor{
	config.ProviderOllama: newOllama,
	config.ProviderOpenAI: newOpenAI,
	config.ProviderAzure:  newAzure,
	config.ProviderArk:    newArk,
	config.ProviderGemini: newGemini,
}

// New constructs the Generator selected by s.Provider. Bedrock uses the
// native text-completion contract; every other provider goes through eino.
func New(ctx context.Context, s config.ModelSettings) (Backend, error) {
	if s.Provider == config.ProviderBedrock {
		client, err := bedrock.NewClient(ctx, s.Region)
		if err != nil {
			return nil, fmt.Errorf("generator: %w", err)
		}
		return NewClaudeGenerator(client, s.Model), nil
	}

	ctor, ok := chatModelBackends[s.Provider]
	if !ok {
		return nil, fmt.Errorf("generator: unknown provider %q (valid: bedrock, openai, azure, ollama, gemini, ark)", s.Provider)
	}
	m, err := ctor(ctx, s)
	if err != nil {
		return nil, err
	}
	return NewChatModelGenerator(m, s.Provider), nil
}
