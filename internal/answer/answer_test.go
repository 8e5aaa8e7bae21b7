package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/catalograg-go/internal/catalog"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
)

type fakeEmbedder struct {
	err  error
	vec  []float32
	seen string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.seen = text
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeGenerator struct {
	out    string
	err    error
	prompt string
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

// failingStore is an index whose Search always fails.
type failingStore struct {
	*index.Memory
}

func (failingStore) Search(context.Context, []float32, int) ([]index.Hit, error) {
	return nil, errors.New("cluster unreachable")
}

func seeded(t *testing.T, texts map[string]string) *index.Memory {
	t.Helper()
	ctx := context.Background()
	m := index.NewMemory(index.DefaultSchema(2))
	if err := m.CreateIndex(ctx); err != nil {
		t.Fatal(err)
	}
	vecs := [][]float32{{1, 0}, {0.8, 0.2}, {0, 1}}
	i := 0
	for id, text := range texts {
		if err := m.Upsert(ctx, id, vecs[i%len(vecs)], catalog.Metadata{ID: id, Text: text}); err != nil {
			t.Fatal(err)
		}
		i++
	}
	return m
}

func TestAsk_Success(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	gen := &fakeGenerator{out: "The lamp costs $12."}
	store := seeded(t, map[string]string{"lamp": "Product: Lamp\nPrice: $12"})
	rec := &logging.Recorder{}

	svc, err := NewService(emb, store, gen, WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Ask(context.Background(), "How much is the lamp?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if got.Text != "The lamp costs $12." {
		t.Errorf("answer should be returned verbatim, got %q", got.Text)
	}
	if emb.seen != "How much is the lamp?" {
		t.Errorf("question should be embedded as-is, got %q", emb.seen)
	}
	if !strings.Contains(gen.prompt, "Product: Lamp\nPrice: $12") {
		t.Errorf("prompt should contain the hit text:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Question: How much is the lamp?") {
		t.Errorf("prompt should contain the question:\n%s", gen.prompt)
	}
	if len(got.Hits) != 1 || got.Context != "Product: Lamp\nPrice: $12" {
		t.Errorf("answer: got %+v", got)
	}
	if len(rec.Named(EventAnswered)) != 1 {
		t.Error("expected a completion event")
	}
}

func TestAsk_NoHitsStillGenerates(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{out: "I could not find that product."}
	svc, _ := NewService(&fakeEmbedder{vec: []float32{1, 0}}, seeded(t, nil), gen)

	got, err := svc.Ask(context.Background(), "Do you sell boats?")
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator should still be called, calls=%d", gen.calls)
	}
	if !strings.Contains(gen.prompt, "Product Information:\n"+NoResults+"\n\n") {
		t.Errorf("prompt should carry the no-results sentinel:\n%s", gen.prompt)
	}
	if got.Context != NoResults {
		t.Errorf("context: got %q", got.Context)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	svc, _ := NewService(emb, seeded(t, nil), &fakeGenerator{})

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Ask(context.Background(), q); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("%q: want ErrEmptyQuestion, got %v", q, err)
		}
	}
	if emb.seen != "" {
		t.Error("embedder must not be called for an empty question")
	}
}

func TestAsk_StageErrors(t *testing.T) {
	t.Parallel()
	cause := errors.New("throttled")

	tests := []struct {
		name      string
		emb       *fakeEmbedder
		store     index.Store
		gen       *fakeGenerator
		wantStage Stage
		wantCtx   string
	}{
		{
			name:      "embed",
			emb:       &fakeEmbedder{err: cause},
			store:     seeded(t, nil),
			gen:       &fakeGenerator{},
			wantStage: StageEmbed,
		},
		{
			name:      "search",
			emb:       &fakeEmbedder{vec: []float32{1, 0}},
			store:     failingStore{seeded(t, nil)},
			gen:       &fakeGenerator{},
			wantStage: StageSearch,
		},
		{
			name:      "generate",
			emb:       &fakeEmbedder{vec: []float32{1, 0}},
			store:     seeded(t, map[string]string{"a": "Product: A"}),
			gen:       &fakeGenerator{err: cause},
			wantStage: StageGenerate,
			wantCtx:   "Product: A",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, err := NewService(tc.emb, tc.store, tc.gen)
			if err != nil {
				t.Fatal(err)
			}
			_, err = svc.Ask(context.Background(), "question")

			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("want *StageError, got %T %v", err, err)
			}
			if se.Stage != tc.wantStage {
				t.Errorf("stage: got %s, want %s", se.Stage, tc.wantStage)
			}
			if se.Context != tc.wantCtx {
				t.Errorf("context: got %q, want %q", se.Context, tc.wantCtx)
			}
			if tc.wantStage != StageSearch && !errors.Is(err, cause) {
				t.Errorf("cause should be wrapped, got %v", err)
			}
		})
	}
}

func TestBuildContext(t *testing.T) {
	t.Parallel()
	hits := []index.Hit{
		{ID: "a", Metadata: catalog.Metadata{Text: "Product: A"}},
		{ID: "b"},
		{ID: "c", Metadata: catalog.Metadata{Text: "Product: C"}},
	}
	want := "Product: A\n\n" + NoText + "\n\nProduct: C"
	if got := BuildContext(hits); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := BuildContext(nil); got != NoResults {
		t.Errorf("empty: got %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()
	got := BuildPrompt("CTX", "Q?")
	want := "You are a helpful product assistant. Answer the following question based on the product information provided.\n\n" +
		"Product Information:\nCTX\n\nQuestion: Q?\n\n" +
		"Provide a helpful, accurate answer based only on the product information above. " +
		"If the information doesn't contain relevant details to answer the question, politely say so."
	if got != want {
		t.Errorf("prompt mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestWithTopK(t *testing.T) {
	t.Parallel()
	texts := map[string]string{"a": "A", "b": "B", "c": "C"}
	svc, _ := NewService(&fakeEmbedder{vec: []float32{1, 0}}, seeded(t, texts), &fakeGenerator{out: "ok"}, WithTopK(2))

	got, err := svc.Ask(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Hits) != 2 {
		t.Errorf("want 2 hits, got %d", len(got.Hits))
	}
}
