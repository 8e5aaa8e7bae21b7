// Package answer implements the question-answering flow: embed the question,
// retrieve the nearest products, build a grounded prompt and generate the
// answer. Each step runs to completion before the next starts and a failure
// ends the request; there are no retries.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/catalograg-go/internal/embedder"
	"github.com/54b3r/catalograg-go/internal/generator"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// TopK is the number of products retrieved per question.
const TopK = 5

// Context placeholders.
const (
	// NoResults is the context used when the search returns nothing.
	NoResults = "No relevant product information found."
	// NoText replaces a hit that carries no product text.
	NoText = "No product text available"
)

// EventAnswered is emitted after a successful answer.
const EventAnswered = "answer.completed"

// ErrEmptyQuestion is returned for an empty or whitespace-only question.
var ErrEmptyQuestion = errors.New("answer: question is required")

// Stage identifies the step of the flow that failed.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageSearch   Stage = "search"
	StageGenerate Stage = "generate"
)

// StageError reports which step failed. For StageGenerate, Context holds
// the retrieved product context so callers can still surface it.
type StageError struct {
	Stage   Stage
	Err     error
	Context string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("answer: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Answer is the result of a successful Ask.
type Answer struct {
	// Text is the generated answer.
	Text string
	// Context is the product context the answer was grounded on.
	Context string
	// Hits are the retrieved products, best first.
	Hits []index.Hit
}

// Service answers questions against the product index.
type Service struct {
	embedder  embedder.Embedder
	store     index.Store
	generator generator.Generator
	topK      int
	observer  logging.Observer
}

// Option configures a Service.
type Option func(*Service)

// WithTopK overrides the number of retrieved products.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o logging.Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService wires the three collaborators.
func NewService(emb embedder.Embedder, store index.Store, gen generator.Generator, opts ...Option) (*Service, error) {
	if emb == nil || store == nil || gen == nil {
		return nil, fmt.Errorf("answer: embedder, store and generator are required")
	}
	s := &Service{embedder: emb, store: store, generator: gen, topK: TopK}
	for _, o := range opts {
		o(s)
	}
	s.observer = logging.OrDefault(s.observer)
	return s, nil
}

// Ask answers question from the indexed products.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}

	hits, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, &StageError{Stage: StageSearch, Err: err}
	}

	productContext := BuildContext(hits)
	text, err := s.generator.Generate(ctx, BuildPrompt(productContext, question))
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err, Context: productContext}
	}

	s.observer.Observe(ctx, logging.Event{
		Name:    EventAnswered,
		Level:   slog.LevelInfo,
		Message: "answer: question answered",
		Attrs: []slog.Attr{
			slog.Int("hits", len(hits)),
			slog.Int("context_chars", len(productContext)),
			slog.Duration("duration", time.Since(start)),
		},
	})
	return &Answer{Text: text, Context: productContext, Hits: hits}, nil
}

// BuildContext joins the hits' product text with blank lines between them.
func BuildContext(hits []index.Hit) string {
	if len(hits) == 0 {
		return NoResults
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Metadata.Text == "" {
			parts = append(parts, NoText)
			continue
		}
		parts = append(parts, h.Metadata.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt renders the grounding prompt for question.
func BuildPrompt(productContext, question string) string {
	return "You are a helpful product assistant. Answer the following question based on the product information provided.\n\n" +
		"Product Information:\n" + productContext + "\n\n" +
		"Question: " + question + "\n\n" +
		"Provide a helpful, accurate answer based only on the product information above. " +
		"If the information doesn't contain relevant details to answer the question, politely say so."
}
