// Package generator produces answers from a hosted text-generation model.
// All backends share one set of decoding parameters and one fallback: an
// empty completion becomes [Fallback] instead of an error.
package generator

import (
	"context"
)

// Fallback is returned when the model produces an empty completion.
const Fallback = "No answer generated."

// StopSequence keeps the model from writing further dialogue turns.
const StopSequence = "\n\nHuman:"

// Generator turns a prompt into generated text.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns the model's completion for prompt, or [Fallback] when
	// the completion is empty. Transport and model errors are returned.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Params are the decoding parameters sent with every request.
type Params struct {
	// Temperature is the sampling temperature.
	Temperature float32
	// TopP is the nucleus sampling threshold.
	TopP float32
	// TopK limits sampling to the K most likely tokens. Backends without a
	// top-k control ignore it.
	TopK int
	// MaxTokens caps the completion length.
	MaxTokens int
	// Stop lists the stop sequences.
	Stop []string
}

// DefaultParams returns the fixed decoding parameters.
func DefaultParams() Params {
	return Params{
		Temperature: 0.7,
		TopP:        0.999,
		TopK:        250,
		MaxTokens:   500,
		Stop:        []string{StopSequence},
	}
}

// orFallback maps an empty completion to [Fallback].
func orFallback(completion string) string {
	if completion == "" {
		return Fallback
	}
	return completion
}
