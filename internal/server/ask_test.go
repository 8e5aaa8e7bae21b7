package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/catalograg-go/internal/answer"
	"github.com/54b3r/catalograg-go/internal/catalog"
	"github.com/54b3r/catalograg-go/internal/generator"
	"github.com/54b3r/catalograg-go/internal/index"
)

// fakeQuerier is a test double for the Querier interface.
type fakeQuerier struct {
	// ans is returned on success.
	ans *answer.Answer
	// err is returned instead of ans when set.
	err error
	// got records the last question.
	got string
}

func (f *fakeQuerier) Ask(_ context.Context, q string) (*answer.Answer, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	if f.ans == nil {
		return &answer.Answer{Text: "ok"}, nil
	}
	return f.ans, nil
}

// newTestServer builds a Server with an isolated metrics registry and a
// discarding logger.
func newTestServer(t *testing.T, q Querier) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := New(q, &Config{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
		RateLimit:       1000,
		RateBurst:       1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// postAsk sends body to POST /ask through the full handler chain.
func postAsk(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("response is not a JSON object: %v", err)
	}
	return w, out
}

func TestHandleAsk_Success(t *testing.T) {
	t.Parallel()
	q := &fakeQuerier{ans: &answer.Answer{Text: "The lamp is $12."}}
	s := newTestServer(t, q)

	w, body := postAsk(t, s, `{"question":"How much is the lamp?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %v", w.Code, body)
	}
	if body["answer"] != "The lamp is $12." {
		t.Errorf("answer: got %q", body["answer"])
	}
	if q.got != "How much is the lamp?" {
		t.Errorf("question: got %q", q.got)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

func TestHandleAsk_Errors(t *testing.T) {
	t.Parallel()
	cause := errors.New("ThrottlingException")

	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
		wantContext string
	}{
		{"missing question", `{}`, nil, http.StatusBadRequest, msgQuestionRequired, "", ""},
		{"blank question", `{"question":"   "}`, nil, http.StatusBadRequest, msgQuestionRequired, "", ""},
		{"malformed json", `{"question":`, nil, http.StatusBadRequest, msgInvalidBody, "", ""},
		{"embed failure", `{"question":"q"}`, &answer.StageError{Stage: answer.StageEmbed, Err: cause},
			http.StatusInternalServerError, msgEmbedFailed, "ThrottlingException", ""},
		{"search failure", `{"question":"q"}`, &answer.StageError{Stage: answer.StageSearch, Err: cause},
			http.StatusInternalServerError, msgSearchFailed, "ThrottlingException", ""},
		{"generate failure", `{"question":"q"}`, &answer.StageError{Stage: answer.StageGenerate, Err: cause, Context: "Product: Lamp"},
			http.StatusInternalServerError, msgGenerateFailed, "ThrottlingException", "Product: Lamp"},
		{"unexpected", `{"question":"q"}`, cause, http.StatusInternalServerError, msgUnexpected, "ThrottlingException", ""},
		{"empty question sentinel", `{"question":"q"}`, answer.ErrEmptyQuestion, http.StatusBadRequest, msgQuestionRequired, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, &fakeQuerier{err: tc.err})

			w, body := postAsk(t, s, tc.body)
			if w.Code != tc.wantStatus {
				t.Fatalf("status: want %d, got %d (%v)", tc.wantStatus, w.Code, body)
			}
			if body["error"] != tc.wantError {
				t.Errorf("error: want %q, got %q", tc.wantError, body["error"])
			}
			if tc.wantDetails != "" && body["details"] != tc.wantDetails {
				t.Errorf("details: want %q, got %q", tc.wantDetails, body["details"])
			}
			if body["context"] != tc.wantContext {
				t.Errorf("context: want %q, got %q", tc.wantContext, body["context"])
			}
		})
	}
}

func TestHandleAsk_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeQuerier{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ask", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("want 405, got %d", w.Code)
	}
}

// stubEmbedder maps every text to the same unit vector.
type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

// recordingGenerator captures the prompt and returns a canned completion.
type recordingGenerator struct {
	out    string
	err    error
	prompt string
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.out, g.err
}

// newEndToEnd wires a real answer.Service over an in-memory index.
func newEndToEnd(t *testing.T, gen generator.Generator, texts ...string) *Server {
	t.Helper()
	ctx := context.Background()
	store := index.NewMemory(index.DefaultSchema(2))
	if err := store.CreateIndex(ctx); err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		id := catalog.ResolveID(catalog.Product{}, i)
		if err := store.Upsert(ctx, id, []float32{1, float32(i) / 10}, catalog.Metadata{ID: id, Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	svc, err := answer.NewService(stubEmbedder{}, store, gen)
	if err != nil {
		t.Fatal(err)
	}
	return newTestServer(t, svc)
}

func TestAsk_EndToEnd(t *testing.T) {
	t.Parallel()
	gen := &recordingGenerator{out: "Yes, the Trail Runner is waterproof."}
	s := newEndToEnd(t, gen, "Product: Trail Runner\nFeatures: waterproof")

	w, body := postAsk(t, s, `{"question":"Is the Trail Runner waterproof?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %v", w.Code, body)
	}
	if body["answer"] != gen.out {
		t.Errorf("answer should be returned verbatim, got %q", body["answer"])
	}
	if !strings.Contains(gen.prompt, "Product: Trail Runner\nFeatures: waterproof") {
		t.Errorf("prompt should include the hit text:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: Is the Trail Runner waterproof?") {
		t.Errorf("prompt should include the question:\n%s", gen.prompt)
	}
}

func TestAsk_EndToEndFallback(t *testing.T) {
	t.Parallel()
	// Backends map an empty completion to the fallback before it reaches
	// the server; the server must pass it through unchanged.
	gen := &recordingGenerator{out: generator.Fallback}
	s := newEndToEnd(t, gen)

	_, body := postAsk(t, s, `{"question":"anything?"}`)
	if body["answer"] != generator.Fallback {
		t.Errorf("want fallback, got %q", body["answer"])
	}
	if !strings.Contains(gen.prompt, answer.NoResults) {
		t.Errorf("empty index should yield the no-results context:\n%s", gen.prompt)
	}
}

func TestAsk_EndToEndGenerateFailureCarriesContext(t *testing.T) {
	t.Parallel()
	gen := &recordingGenerator{err: errors.New("model timeout")}
	s := newEndToEnd(t, gen, "Product: Lamp")

	w, body := postAsk(t, s, `{"question":"lamp?"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", w.Code)
	}
	if body["error"] != msgGenerateFailed || body["context"] != "Product: Lamp" {
		t.Errorf("body: got %v", body)
	}
}

func TestHandleAsk_BodyTooLarge(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeQuerier{})
	big := `{"question":"` + string(bytes.Repeat([]byte("a"), maxAskBody)) + `"}`

	w, body := postAsk(t, s, big)
	if w.Code != http.StatusBadRequest || body["error"] != msgInvalidBody {
		t.Errorf("want 400 invalid body, got %d %v", w.Code, body)
	}
}
