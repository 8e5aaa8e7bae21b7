package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/catalograg-go/internal/answer"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 7000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// AskTimeout bounds a single POST /ask. Zero means no bound.
	AskTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency checks run by GET /ready.
	// If empty, /ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on POST /ask
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Querier answers a question. *answer.Service satisfies it; tests inject a
// fake.
type Querier interface {
	// Ask returns the grounded answer for question.
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// Server is the HTTP front end of the question-answering flow.
type Server struct {
	// querier answers POST /ask.
	querier Querier
	// cfg holds the resolved server configuration.
	cfg *Config
	// handler is the fully wrapped mux.
	handler http.Handler
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency checks for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
	// now is the clock used for health timestamps.
	now func() time.Time
}

// askRequest is the JSON body for POST /ask.
type askRequest struct {
	// Question is the user's natural-language question.
	Question string `json:"question"`
}

// askResponse is the JSON body of a successful POST /ask.
type askResponse struct {
	// Answer is the generated text.
	Answer string `json:"answer"`
}

// errorResponse is the JSON body of every failed POST /ask.
type errorResponse struct {
	// Error is a fixed, client-facing summary.
	Error string `json:"error"`
	// Details carries the underlying error message.
	Details string `json:"details,omitempty"`
	// Context is the retrieved product context, set on generation failures.
	Context string `json:"context,omitempty"`
}

// healthResponse is the JSON body for GET /health.
type healthResponse struct {
	// Status is always "ok".
	Status string `json:"status"`
	// Timestamp is the server time in RFC 3339 UTC.
	Timestamp string `json:"timestamp"`
}
