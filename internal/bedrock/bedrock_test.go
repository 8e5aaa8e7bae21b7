package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// fakeInvoker records the last request and returns a canned body or error.
type fakeInvoker struct {
	body []byte
	err  error
	last *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestInvokeJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{body: []byte(`{"answer":42}`)}
	var out struct {
		Answer int `json:"answer"`
	}
	err := InvokeJSON(context.Background(), inv, "test.model-v1", map[string]string{"q": "life"}, &out)
	if err != nil {
		t.Fatalf("InvokeJSON: %v", err)
	}
	if out.Answer != 42 {
		t.Errorf("want 42, got %d", out.Answer)
	}

	if got := aws.ToString(inv.last.ModelId); got != "test.model-v1" {
		t.Errorf("ModelId: got %q", got)
	}
	if got := aws.ToString(inv.last.ContentType); got != "application/json" {
		t.Errorf("ContentType: got %q", got)
	}
	var sent map[string]string
	if err := json.Unmarshal(inv.last.Body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent["q"] != "life" {
		t.Errorf("request body: got %v", sent)
	}
}

func TestInvokeJSON_PropagatesError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("ThrottlingException: slow down")
	err := InvokeJSON(context.Background(), &fakeInvoker{err: sentinel}, "m", struct{}{}, &struct{}{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("original message should be preserved, got %q", err)
	}
}

func TestInvokeJSON_BadResponse(t *testing.T) {
	t.Parallel()

	err := InvokeJSON(context.Background(), &fakeInvoker{body: []byte("<html>")}, "m", struct{}{}, &struct{}{})
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
