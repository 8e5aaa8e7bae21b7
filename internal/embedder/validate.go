package embedder

import (
	"log/slog"
	"strings"

	"github.com/54b3r/catalograg-go/internal/config"
)

// knownChatModelPrefixes contains name fragments that identify chat/completion
// models which are NOT suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"o1",
	"o3",
	"llama3",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"titan-text",
}

// looksLikeChatModel returns true when the model name resembles a known
// chat/completion model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Preflight logs warnings for embedding settings that are valid but almost
// certainly wrong. It reports whether any warning was emitted.
func Preflight(s config.ModelSettings, dims int, log *slog.Logger) bool {
	warned := false

	if looksLikeChatModel(s.Model) {
		log.Warn("embedder: model looks like a chat model, not an embedding model",
			slog.String("model", s.Model),
			slog.String("hint", "use a dedicated embedding model e.g. amazon.titan-embed-text-v1, text-embedding-3-small"),
		)
		warned = true
	}

	// Titan v1 has a fixed output size; any other index dimension is rejected
	// by the store on the first upsert.
	if s.Provider == config.ProviderBedrock && s.Model == config.DefaultTitanModel && dims != config.DefaultDimensions {
		log.Warn("embedder: index dimension does not match the embedding model",
			slog.String("model", s.Model),
			slog.Int("model_dimensions", config.DefaultDimensions),
			slog.Int("index_dimensions", dims),
		)
		warned = true
	}

	return warned
}
