package embedder

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/54b3r/catalograg-go/internal/config"
)

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  bool
	}{
		{"amazon.titan-embed-text-v1", false},
		{"text-embedding-3-small", false},
		{"nomic-embed-text", false},
		{"anthropic.claude-v2:1", true},
		{"gpt-4o", true},
		{"llama3.1", true},
	}
	for _, tc := range tests {
		if got := looksLikeChatModel(tc.model); got != tc.want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    config.ModelSettings
		dims int
		warn bool
	}{
		{"titan default", config.ModelSettings{Provider: config.ProviderBedrock, Model: config.DefaultTitanModel}, 1536, false},
		{"titan wrong dims", config.ModelSettings{Provider: config.ProviderBedrock, Model: config.DefaultTitanModel}, 768, true},
		{"chat model", config.ModelSettings{Provider: config.ProviderOllama, Model: "llama3.1"}, 768, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			got := Preflight(tc.s, tc.dims, slog.New(slog.NewTextHandler(&buf, nil)))
			if got != tc.warn {
				t.Errorf("Preflight = %v, want %v (log: %s)", got, tc.warn, buf.String())
			}
		})
	}
}
