package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/catalograg-go/internal/answer"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// maxAskBody bounds the POST /ask request body.
const maxAskBody = 1 << 20

// Client-facing error summaries for POST /ask.
const (
	msgQuestionRequired = "Question is required"
	msgInvalidBody      = "Invalid request body"
	msgEmbedFailed      = "Failed to embed question"
	msgSearchFailed     = "Failed to query product database"
	msgGenerateFailed   = "Failed to generate answer"
	msgUnexpected       = "Something went wrong"
)

// Ask outcomes used as metric labels.
const (
	outcomeOK            = "ok"
	outcomeBadRequest    = "bad_request"
	outcomeEmbedError    = "embed_error"
	outcomeSearchError   = "search_error"
	outcomeGenerateError = "generate_error"
	outcomeError         = "error"
)

// handleAsk handles POST /ask. It decodes {"question": "..."}, runs the
// answer flow and maps each failing stage to a fixed error summary.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()
	outcome := outcomeError
	defer func() {
		s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBody)).Decode(&req); err != nil {
		outcome = outcomeBadRequest
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: msgInvalidBody, Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		outcome = outcomeBadRequest
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: msgQuestionRequired})
		return
	}

	ctx := r.Context()
	if s.cfg.AskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AskTimeout)
		defer cancel()
	}

	log.Info("ask: processing question", slog.Int("question_chars", len(req.Question)))
	ans, err := s.querier.Ask(ctx, req.Question)
	if err != nil {
		var resp errorResponse
		resp, outcome = classifyAskError(err)
		log.Error("ask: failed", slog.String("outcome", outcome), slog.Any("error", err))
		status := http.StatusInternalServerError
		if outcome == outcomeBadRequest {
			status = http.StatusBadRequest
		}
		writeJSON(w, log, status, resp)
		return
	}

	outcome = outcomeOK
	s.metrics.askContextHits.Observe(float64(len(ans.Hits)))
	writeJSON(w, log, http.StatusOK, askResponse{Answer: ans.Text})
}

// classifyAskError maps an answer-flow error to its response and outcome.
func classifyAskError(err error) (errorResponse, string) {
	if errors.Is(err, answer.ErrEmptyQuestion) {
		return errorResponse{Error: msgQuestionRequired}, outcomeBadRequest
	}
	var se *answer.StageError
	if errors.As(err, &se) {
		details := se.Err.Error()
		switch se.Stage {
		case answer.StageEmbed:
			return errorResponse{Error: msgEmbedFailed, Details: details}, outcomeEmbedError
		case answer.StageSearch:
			return errorResponse{Error: msgSearchFailed, Details: details}, outcomeSearchError
		case answer.StageGenerate:
			return errorResponse{Error: msgGenerateFailed, Details: details, Context: se.Context}, outcomeGenerateError
		}
	}
	return errorResponse{Error: msgUnexpected, Details: err.Error()}, outcomeError
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
