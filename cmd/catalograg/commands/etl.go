package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/etl"
	"github.com/54b3r/catalograg-go/internal/logging"
	"github.com/54b3r/catalograg-go/internal/source"
	"github.com/54b3r/catalograg-go/internal/store"
)

// NewETLCmd constructs the `catalograg etl` command, which loads every
// product from MongoDB into the vector index.
func NewETLCmd() *cobra.Command {
	var recreate bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Index every product from MongoDB into the vector index",
		Long: `Fetch all products, flatten each one to text, embed it and upsert it into
the vector index under its product id.

A record that fails to embed or upsert is logged and skipped; the run still
reports processed/errors/total and exits 0. Failing to create the index or
fetch the products aborts the run with a non-zero exit.

Examples:
  catalograg etl
  catalograg etl --recreate
  VECTOR_BACKEND=qdrant catalograg etl --no-progress`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			settings, err := loadSettings(config.NeedSource | config.NeedIndex | config.NeedEmbedder)
			if err != nil {
				return fmt.Errorf("etl: %w", err)
			}
			obs := logging.NewLogObserver(log)

			src, err := source.NewMongo(ctx, settings.Mongo)
			if err != nil {
				return fmt.Errorf("etl: %w", err)
			}
			defer closeQuietly(log, "mongodb", src.Close)

			emb, err := newEmbedder(ctx, settings, log)
			if err != nil {
				return fmt.Errorf("etl: %w", err)
			}

			idx, err := openIndex(settings, log)
			if err != nil {
				return fmt.Errorf("etl: %w", err)
			}
			defer func() { _ = idx.Close() }()

			ledger := openLedger(settings, log)
			if ledger != nil {
				defer func() { _ = ledger.Close() }()
			}

			bar := newBar(noProgress)
			pipeline, err := etl.NewPipeline(src, emb, idx, etl.Config{
				Recreate:  recreate,
				Observer:  obs,
				OnFetched: bar.start,
				OnRecord:  func(etl.Result) { bar.step() },
			})
			if err != nil {
				return fmt.Errorf("etl: %w", err)
			}

			summary, runErr := pipeline.Run(ctx)
			bar.finish()

			if ledger != nil {
				// Record even when the command context is cancelled.
				recCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				id, err := ledger.Record(recCtx, ledgerRun(settings, recreate, summary, runErr))
				cancel()
				if err != nil {
					log.Warn("ledger: failed to record run", slog.Any("error", err))
				} else {
					log.Info("ledger: run recorded", slog.Int64("run_id", id))
				}
			}

			printSummary(cmd.OutOrStdout(), summary)
			if runErr != nil {
				return describeIndexErr(runErr, settings.Index.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&recreate, "recreate", false, "Delete and recreate the index before loading")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	cmd.AddCommand(newETLHistoryCmd())
	return cmd
}

// newETLHistoryCmd constructs `catalograg etl history`.
func newETLHistoryCmd() *cobra.Command {
	var limit int
	var runID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent ETL runs from the run ledger",
		Long: `List recent ETL runs, newest first. With --run, list the failed records of
that run instead.

Examples:
  catalograg etl history
  catalograg etl history --limit 50
  catalograg etl history --run 12`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			settings, err := loadSettings(0)
			if err != nil {
				return fmt.Errorf("etl history: %w", err)
			}
			if !settings.LedgerEnabled() {
				return fmt.Errorf("etl history: the run ledger is disabled (CATALOGRAG_LEDGER_DB=%s)", config.LedgerDisabled)
			}
			ledger := openLedger(settings, log)
			if ledger == nil {
				return fmt.Errorf("etl history: could not open the run ledger")
			}
			defer func() { _ = ledger.Close() }()

			return showHistory(cmd, ledger, limit, runID)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().Int64Var(&runID, "run", 0, "Show the failed records of this run")
	return cmd
}

// showHistory prints either the recent runs or one run's failures.
func showHistory(cmd *cobra.Command, ledger store.Ledger, limit int, runID int64) error {
	out := cmd.OutOrStdout()
	if runID != 0 {
		failures, err := ledger.Failures(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("etl history: %w", err)
		}
		if len(failures) == 0 {
			_, err := fmt.Fprintf(out, "Run %d has no failed records.\n", runID)
			return err
		}
		for _, f := range failures {
			fmt.Fprintf(out, "#%d\t%s\t%s\t%s\n", f.RecordIndex, f.ProductID, f.Stage, f.Reason)
		}
		return nil
	}

	if limit <= 0 {
		return fmt.Errorf("etl history: --limit must be positive")
	}
	runs, err := ledger.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("etl history: %w", err)
	}
	return printHistory(out, runs)
}

// etlBar drives the progress bar from pipeline callbacks. A disabled bar is
// a no-op so the pipeline wiring stays the same.
type etlBar struct {
	disabled bool
	bar      *progressbar.ProgressBar
}

func newBar(disabled bool) *etlBar { return &etlBar{disabled: disabled} }

func (b *etlBar) start(total int) {
	if b.disabled || total == 0 {
		return
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("[cyan]Indexing products[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (b *etlBar) step() {
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *etlBar) finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
