package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/catalograg-go/internal/bedrock"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/generator"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// ModelPinger checks a generation backend for GET /ready. Where the provider
// exposes a free endpoint (model list, credential resolution) that is used;
// otherwise the check falls back to a one-word generation.
type ModelPinger struct {
	// name identifies the backend in readiness responses (e.g. "bedrock").
	name string
	// check is the provider-specific readiness call.
	check func(ctx context.Context) error
}

// NewModelPinger builds the cheapest available check for s.Provider.
func NewModelPinger(s config.ModelSettings, gen generator.Generator) *ModelPinger {
	p := &ModelPinger{name: s.Provider}
	switch s.Provider {
	case config.ProviderBedrock:
		p.check = func(ctx context.Context) error { return bedrock.CheckCredentials(ctx, s.Region) }
	case config.ProviderOllama:
		p.check = NewHTTPPinger(s.Provider, strings.TrimRight(s.Endpoint, "/")+"/api/tags", "").Ping
	case config.ProviderOpenAI:
		base := s.Endpoint
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		p.check = NewHTTPPinger(s.Provider, strings.TrimRight(base, "/")+"/models", s.APIKey).Ping
	default:
		p.check = generateCheck(s.Provider, gen)
	}
	return p
}

// Name returns the backend label used in readiness responses.
func (p *ModelPinger) Name() string { return p.name }

// Ping runs the check.
func (p *ModelPinger) Ping(ctx context.Context) error {
	if err := p.check(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	return nil
}

// generateCheck checks a backend by generating from a tiny prompt. This
// consumes tokens on every check.
func generateCheck(name string, gen generator.Generator) func(context.Context) error {
	return func(ctx context.Context) error {
		logging.FromContext(ctx).Warn("pinger: using generate-based health check, tokens will be consumed",
			slog.String("backend", name),
		)
		if _, err := gen.Generate(ctx, "ping"); err != nil {
			return fmt.Errorf("generate failed: %w", err)
		}
		return nil
	}
}

// HTTPPinger checks a dependency with a GET request that must return 2xx.
type HTTPPinger struct {
	// name is the dependency label.
	name string
	// url is the checkd endpoint.
	url string
	// bearer, when set, is sent as an Authorization bearer token.
	bearer string
	// client is the HTTP client used for the check.
	client *http.Client
}

// NewHTTPPinger constructs an HTTPPinger.
func NewHTTPPinger(name, url, bearer string) *HTTPPinger {
	return &HTTPPinger{name: name, url: url, bearer: bearer, client: &http.Client{Timeout: checkTimeout + time.Second}}
}

// Name returns the dependency label.
func (p *HTTPPinger) Name() string { return p.name }

// Ping issues the GET and checks the status code.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if p.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+p.bearer)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: unexpected status %d", p.url, resp.StatusCode)
	}
	return nil
}
