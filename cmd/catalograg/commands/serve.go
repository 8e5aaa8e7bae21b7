package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/answer"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/generator"
	"github.com/54b3r/catalograg-go/internal/logging"
	"github.com/54b3r/catalograg-go/internal/server"
	"github.com/54b3r/catalograg-go/internal/tracing"
	"github.com/54b3r/catalograg-go/internal/version"
)

// preflightTimeout bounds the startup dependency check.
const preflightTimeout = 10 * time.Second

// NewServeCmd constructs the `catalograg serve` command, which starts the
// HTTP query server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalograg HTTP query server",
		Long: `Start the HTTP server.

Endpoints:
  POST /ask      {"question": "..."} → {"answer": "..."}
  GET  /health   liveness
  GET  /ready    checks the vector index and the generation backend
  GET  /metrics  Prometheus metrics

Examples:
  catalograg serve
  catalograg serve --port 9090
  MODEL_PROVIDER=openai catalograg serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			settings, err := loadSettings(config.NeedIndex | config.NeedEmbedder | config.NeedGenerator)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if cmd.Flags().Changed("host") {
				settings.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Server.Port = port
			}

			log.Info("serve starting",
				slog.String("version", version.Version),
				slog.String("embedding_provider", settings.Embedding.Provider),
				slog.String("model_provider", settings.Generation.Provider),
			)

			// Langfuse tracing is opt-in and a no-op if the keys are absent.
			flush, traced := tracing.Install(tracing.ConfigFromEnv())
			defer flush()
			if traced {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			obs := logging.NewLogObserver(log)

			emb, err := newEmbedder(ctx, settings, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			gen, err := generator.New(ctx, settings.Generation)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise generator: %w", err)
			}
			log.Info("generator initialised", slog.String("backend", gen.Name()), slog.String("model", settings.Generation.Model))

			idx, err := openIndex(settings, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = idx.Close() }()

			svc, err := answer.NewService(emb, idx, gen, answer.WithObserver(obs))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{idx, server.NewModelPinger(settings.Generation, gen)}
			preflight(ctx, log, pingers)

			srv, err := server.New(svc, &server.Config{
				Host:       settings.Server.Host,
				Port:       settings.Server.Port,
				AskTimeout: settings.Server.AskTimeout,
				RateLimit:  settings.Server.RateLimit,
				RateBurst:  settings.Server.RateBurst,
				Logger:     log,
				Pingers:    pingers,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultServerHost, "Host address to bind to (overrides SERVER_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "TCP port to listen on (overrides SERVER_PORT)")

	return cmd
}

// preflight checks every dependency once at startup. Failures are logged,
// not fatal: the server still starts and GET /ready reports the problem.
func preflight(ctx context.Context, log *slog.Logger, pingers []server.Pinger) {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	mp := server.NewMultiPinger(pingers...)
	if err := mp.Ping(ctx); err != nil {
		log.Warn("preflight: dependency check failed, serving anyway",
			slog.String("dependencies", mp.Name()),
			slog.Any("error", err),
		)
		return
	}
	log.Info("preflight: dependencies reachable", slog.String("dependencies", mp.Name()))
}
