package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/embedder"
	"github.com/54b3r/catalograg-go/internal/etl"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
	"github.com/54b3r/catalograg-go/internal/store"
)

// loadSettings resolves Settings from the environment and validates the
// parts the calling command needs.
func loadSettings(req config.Requirement) (*config.Settings, error) {
	s, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	return s, nil
}

// openIndex builds the configured vector index store.
func openIndex(s *config.Settings, log *slog.Logger) (index.Store, error) {
	st, err := index.New(s.Index)
	if err != nil {
		return nil, err
	}
	log.Info("vector index ready",
		slog.String("backend", st.Name()),
		slog.String("index", s.Index.Name),
		slog.Int("dimensions", s.Index.Dimensions),
	)
	return st, nil
}

// newEmbedder builds the configured embedder and logs warnings for
// settings that are valid but likely wrong.
func newEmbedder(ctx context.Context, s *config.Settings, log *slog.Logger) (embedder.Embedder, error) {
	embedder.Preflight(s.Embedding, s.Index.Dimensions, log)
	emb, err := embedder.New(ctx, s.Embedding, s.Index.Dimensions, logging.NewLogObserver(log))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("provider", s.Embedding.Provider),
		slog.String("model", s.Embedding.Model),
	)
	return emb, nil
}

// openLedger opens the ETL run ledger. A disabled or unopenable ledger is
// not fatal: ETL still runs, it is just not recorded.
func openLedger(s *config.Settings, log *slog.Logger) store.Ledger {
	if !s.LedgerEnabled() {
		log.Info("ledger: disabled via CATALOGRAG_LEDGER_DB=disabled")
		return nil
	}
	path := s.LedgerPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("ledger: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
		path = p
	}
	l, err := store.Open(path)
	if err != nil {
		log.Warn("ledger: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Debug("ledger: store opened", slog.String("path", path))
	return l
}

// ledgerRun converts an ETL summary and its terminal error into a ledger row.
func ledgerRun(s *config.Settings, recreate bool, sum etl.Summary, runErr error) store.Run {
	run := store.Run{
		Backend:    s.Index.Backend,
		Index:      s.Index.Name,
		Recreated:  recreate,
		StartedAt:  sum.Started,
		FinishedAt: sum.Finished,
		Processed:  sum.Processed,
		Errors:     sum.Errors,
		Total:      sum.Total,
		Status:     store.StatusCompleted,
	}
	if run.Backend == "" {
		run.Backend = config.BackendOpenSearch
	}
	if runErr != nil {
		run.Status = store.StatusAborted
		run.Error = runErr.Error()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	for _, f := range sum.Failures {
		reason := "unknown"
		if f.Err != nil {
			reason = f.Err.Error()
		}
		run.Failures = append(run.Failures, store.Failure{
			RecordIndex: f.Index,
			ProductID:   f.ID,
			Stage:       string(f.Stage),
			Reason:      reason,
		})
	}
	return run
}

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, sum etl.Summary) {
	fmt.Fprintf(w, "\nETL complete:\n")
	fmt.Fprintf(w, "  Processed: %d\n", sum.Processed)
	fmt.Fprintf(w, "  Errors:    %d\n", sum.Errors)
	fmt.Fprintf(w, "  Total:     %d\n", sum.Total)
	fmt.Fprintf(w, "  Duration:  %s\n", sum.Duration().Round(time.Millisecond))
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "  ! #%d %s (%s): %v\n", f.Index, f.ID, f.Stage, f.Err)
	}
}

// printHistory renders ledger runs as a table.
func printHistory(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No ETL runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tBACKEND\tINDEX\tPROCESSED\tERRORS\tTOTAL\tSTATUS")
	for _, r := range runs {
		status := string(r.Status)
		if r.Recreated {
			status += " (recreated)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Backend, r.Index, r.Processed, r.Errors, r.Total, status,
		)
	}
	return tw.Flush()
}

// closeQuietly closes the context-aware resource with a fresh short
// deadline, so a cancelled command context does not skip cleanup.
func closeQuietly(log *slog.Logger, name string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Warn("close failed", slog.String("resource", name), slog.Any("error", err))
	}
}

// describeIndexErr turns a missing-index error into an operator hint.
func describeIndexErr(err error, name string) error {
	if errors.Is(err, index.ErrIndexNotFound) {
		return fmt.Errorf("%w: run `catalograg index create` or `catalograg etl` to create %q", err, name)
	}
	return err
}

// indent prefixes every line of s with pad.
func indent(s, pad string) string {
	return pad + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+pad)
}
