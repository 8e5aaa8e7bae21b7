package generator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// fakeBedrock returns a canned body or error and records the request.
type fakeBedrock struct {
	body []byte
	err  error
	last *bedrockruntime.InvokeModelInput
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestClaudeGenerator_RequestContract(t *testing.T) {
	t.Parallel()

	fake := &fakeBedrock{body: []byte(`{"completion":" It costs $10.","stop_reason":"stop_sequence"}`)}
	g := NewClaudeGenerator(fake, "anthropic.claude-v2:1")

	got, err := g.Generate(context.Background(), "What is the price of X?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != " It costs $10." {
		t.Errorf("completion must be returned verbatim, got %q", got)
	}

	if id := aws.ToString(fake.last.ModelId); id != "anthropic.claude-v2:1" {
		t.Errorf("ModelId: got %q", id)
	}

	var req map[string]any
	if err := json.Unmarshal(fake.last.Body, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req["prompt"] != "\n\nHuman: What is the price of X?\n\nAssistant:" {
		t.Errorf("prompt: got %q", req["prompt"])
	}
	checks := map[string]float64{
		"max_tokens_to_sample": 500,
		"top_k":                250,
	}
	for k, want := range checks {
		if req[k] != want {
			t.Errorf("%s: want %v, got %v", k, want, req[k])
		}
	}
	// float32 values survive JSON as their float64 rendering.
	if v, _ := req["temperature"].(float64); float32(v) != 0.7 {
		t.Errorf("temperature: got %v", req["temperature"])
	}
	if v, _ := req["top_p"].(float64); float32(v) != 0.999 {
		t.Errorf("top_p: got %v", req["top_p"])
	}
	stops, _ := req["stop_sequences"].([]any)
	if len(stops) != 1 || stops[0] != "\n\nHuman:" {
		t.Errorf("stop_sequences: got %v", req["stop_sequences"])
	}
}

func TestClaudeGenerator_EmptyCompletionFallsBack(t *testing.T) {
	t.Parallel()

	g := NewClaudeGenerator(&fakeBedrock{body: []byte(`{"completion":""}`)}, "m")
	got, err := g.Generate(context.Background(), "q")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != Fallback {
		t.Errorf("want %q, got %q", Fallback, got)
	}
}

func TestClaudeGenerator_PropagatesError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("AccessDeniedException")
	g := NewClaudeGenerator(&fakeBedrock{err: sentinel}, "m")
	if _, err := g.Generate(context.Background(), "q"); !errors.Is(err, sentinel) {
		t.Fatalf("want wrapped sentinel, got %v", err)
	}
}
