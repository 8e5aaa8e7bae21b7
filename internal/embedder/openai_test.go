package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIEmbedder_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization: got %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["input"] != "hello" || req["model"] != "text-embedding-3-small" {
			t.Errorf("unexpected request %v", req)
		}
		if req["dimensions"] != float64(4) {
			t.Errorf("dimensions: got %v", req["dimensions"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",` +
			`"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0,-1]}],` +
			`"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	t.Cleanup(srv.Close)

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1/",
		Model:      "text-embedding-3-small",
		Dimensions: 4,
	})
	vec, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.5, 0.25, 0, -1}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("vector: want %v, got %v", want, vec)
		}
	}
}
