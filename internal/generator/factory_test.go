package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/54b3r/catalograg-go/internal/config"
)

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		s       config.ModelSettings
		wantErr string
	}{
		{"unknown provider", config.ModelSettings{Provider: "palm"}, "unknown provider"},
		{"openai without key", config.ModelSettings{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini"}, "OPENAI_API_KEY"},
		{"azure incomplete", config.ModelSettings{Provider: config.ProviderAzure, APIKey: "k"}, "azure backend needs"},
		{"gemini without key", config.ModelSettings{Provider: config.ProviderGemini}, "GOOGLE_API_KEY"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(context.Background(), tc.s)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDefaultParams(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	if p.Temperature != 0.7 || p.TopP != 0.999 || p.TopK != 250 || p.MaxTokens != 500 {
		t.Errorf("unexpected params %+v", p)
	}
	if len(p.Stop) != 1 || p.Stop[0] != "\n\nHuman:" {
		t.Errorf("unexpected stop sequences %v", p.Stop)
	}
}
