// Package embedder converts text into dense vector embeddings via a hosted
// model. Backends (Bedrock Titan, OpenAI, Ollama) are wrapped by [Truncating],
// which enforces the input-length ceiling before any text leaves the process.
package embedder

import (
	"context"
	"log/slog"

	"github.com/54b3r/catalograg-go/internal/logging"
)

// MaxTextLength is the input ceiling, in characters, applied before
// embedding. Longer input is prefix-truncated rather than rejected.
const MaxTextLength = 8000

// EventTruncated is emitted when input is shortened to the ceiling.
const EventTruncated = "embed.truncated"

// Embedder converts a single text into its embedding vector.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the embedding of text. Transport and model errors are
	// returned to the caller; no retry is attempted.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Truncating wraps an Embedder and enforces a character ceiling on its input.
type Truncating struct {
	// next is the backend that receives the (possibly truncated) text.
	next Embedder
	// limit is the maximum number of characters submitted.
	limit int
	// observer receives truncation events.
	observer logging.Observer
}

// NewTruncating wraps next with a ceiling of limit characters. A limit of
// zero or less selects [MaxTextLength]. A nil observer logs to the context
// logger.
func NewTruncating(next Embedder, limit int, observer logging.Observer) *Truncating {
	if limit <= 0 {
		limit = MaxTextLength
	}
	return &Truncating{next: next, limit: limit, observer: logging.OrDefault(observer)}
}

// Embed truncates text to the ceiling and delegates to the wrapped backend.
func (t *Truncating) Embed(ctx context.Context, text string) ([]float32, error) {
	if cut, ok := truncate(text, t.limit); ok {
		t.observer.Observe(ctx, logging.Event{
			Name:    EventTruncated,
			Level:   slog.LevelWarn,
			Message: "embedder: input truncated",
			Attrs: []slog.Attr{
				slog.Int("original_length", len([]rune(text))),
				slog.Int("truncated_length", t.limit),
			},
		})
		text = cut
	}
	return t.next.Embed(ctx, text)
}

// truncate returns the first limit characters of s and true when s is
// longer than limit. Characters are counted as runes so multi-byte text is
// never split mid-character.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		// Byte length bounds rune length, so nothing to cut.
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
