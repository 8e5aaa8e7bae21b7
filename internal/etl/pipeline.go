// Package etl runs the indexing pipeline: fetch every product from the
// source, flatten it to text, embed it and upsert it into the vector index.
// Records are processed one at a time; a record that fails is counted and
// skipped, while failures before the loop (index setup, fetch) abort the run.
package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/catalograg-go/internal/catalog"
	"github.com/54b3r/catalograg-go/internal/embedder"
	"github.com/54b3r/catalograg-go/internal/index"
	"github.com/54b3r/catalograg-go/internal/logging"
	"github.com/54b3r/catalograg-go/internal/source"
)

// Event names emitted through the Observer.
const (
	EventIndexReady   = "etl.index_ready"
	EventFetched      = "etl.fetched"
	EventRecordFailed = "etl.record_failed"
	EventThrottled    = "etl.throttled"
	EventCompleted    = "etl.completed"
)

// Config holds the pipeline options.
type Config struct {
	// Recreate drops the index before creating it.
	Recreate bool

	// ThrottleEvery is the number of successful records between pauses.
	// Defaults to 10 if zero.
	ThrottleEvery int

	// ThrottlePause is the length of each pause. Defaults to 1s if zero.
	ThrottlePause time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer-based
	// wait; tests substitute a recorder.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnFetched, when set, is called once with the batch size before the
	// loop starts.
	OnFetched func(total int)

	// OnRecord, when set, is called after every record.
	OnRecord func(Result)

	// Observer receives pipeline events. Nil logs to the context logger.
	Observer logging.Observer
}

// Pipeline orchestrates the fetch → flatten → embed → upsert flow.
type Pipeline struct {
	source   source.Source
	embedder embedder.Embedder
	store    index.Store
	cfg      Config
	now      func() time.Time
}

// NewPipeline constructs a Pipeline from its collaborators.
func NewPipeline(src source.Source, emb embedder.Embedder, store index.Store, cfg Config) (*Pipeline, error) {
	if src == nil {
		return nil, fmt.Errorf("etl: source must not be nil")
	}
	if emb == nil {
		return nil, fmt.Errorf("etl: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("etl: store must not be nil")
	}
	if cfg.ThrottleEvery <= 0 {
		cfg.ThrottleEvery = 10
	}
	if cfg.ThrottlePause <= 0 {
		cfg.ThrottlePause = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	cfg.Observer = logging.OrDefault(cfg.Observer)

	return &Pipeline{source: src, embedder: emb, store: store, cfg: cfg, now: time.Now}, nil
}

// Run executes one full pass. The returned Summary is valid (with whatever
// was counted so far) even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Started: p.now()}

	if err := p.prepareIndex(ctx); err != nil {
		sum.Finished = p.now()
		return sum, err
	}

	products, err := p.source.Fetch(ctx)
	if err != nil {
		sum.Finished = p.now()
		return sum, fmt.Errorf("etl: fetch products: %w", err)
	}
	sum.Total = len(products)
	p.emit(ctx, EventFetched, slog.LevelInfo, "etl: products fetched", slog.Int("count", sum.Total))
	if p.cfg.OnFetched != nil {
		p.cfg.OnFetched(sum.Total)
	}

	for i, prod := range products {
		if err := ctx.Err(); err != nil {
			sum.Finished = p.now()
			return sum, fmt.Errorf("etl: aborted after %d of %d records: %w", i, sum.Total, err)
		}

		res := p.processRecord(ctx, i, prod)
		if res.Outcome == Indexed {
			sum.Processed++
		} else {
			sum.Errors++
			sum.Failures = append(sum.Failures, res)
			p.emit(ctx, EventRecordFailed, slog.LevelError, "etl: record failed",
				slog.Int("index", res.Index),
				slog.String("id", res.ID),
				slog.String("stage", string(res.Stage)),
				slog.String("error", res.Err.Error()),
			)
		}
		if p.cfg.OnRecord != nil {
			p.cfg.OnRecord(res)
		}

		if res.Outcome == Indexed && sum.Processed%p.cfg.ThrottleEvery == 0 {
			p.emit(ctx, EventThrottled, slog.LevelDebug, "etl: pausing",
				slog.Int("processed", sum.Processed),
				slog.Duration("pause", p.cfg.ThrottlePause),
			)
			if err := p.cfg.Sleep(ctx, p.cfg.ThrottlePause); err != nil {
				sum.Finished = p.now()
				return sum, fmt.Errorf("etl: aborted after %d of %d records: %w", i+1, sum.Total, err)
			}
		}
	}

	sum.Finished = p.now()
	p.emit(ctx, EventCompleted, slog.LevelInfo, "etl: completed",
		slog.Int("processed", sum.Processed),
		slog.Int("errors", sum.Errors),
		slog.Int("total", sum.Total),
		slog.Duration("duration", sum.Duration()),
	)
	return sum, nil
}

// prepareIndex creates (or recreates) the target index.
func (p *Pipeline) prepareIndex(ctx context.Context) error {
	if p.cfg.Recreate {
		if err := p.store.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("etl: delete index: %w", err)
		}
	}
	if err := p.store.CreateIndex(ctx); err != nil {
		return fmt.Errorf("etl: create index: %w", err)
	}
	p.emit(ctx, EventIndexReady, slog.LevelInfo, "etl: index ready",
		slog.String("backend", p.store.Name()),
		slog.Bool("recreated", p.cfg.Recreate),
	)
	return nil
}

// processRecord runs the per-record steps and reports the outcome as a
// value. A panic in any step becomes a Failed result for this record only.
func (p *Pipeline) processRecord(ctx context.Context, i int, prod catalog.Product) (res Result) {
	res = Result{Index: i, ID: catalog.ResolveID(prod, i), Stage: StageFlatten}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	meta := catalog.BuildMetadata(prod)
	meta.ID = res.ID

	res.Stage = StageEmbed
	vec, err := p.embedder.Embed(ctx, meta.Text)
	if err != nil {
		return failed(res, err)
	}

	res.Stage = StageUpsert
	if err := p.store.Upsert(ctx, res.ID, vec, meta); err != nil {
		return failed(res, err)
	}

	res.Outcome = Indexed
	res.Stage = ""
	return res
}

func failed(res Result, err error) Result {
	res.Outcome = Failed
	res.Err = err
	return res
}

func (p *Pipeline) emit(ctx context.Context, name string, level slog.Level, msg string, attrs ...slog.Attr) {
	p.cfg.Observer.Observe(ctx, logging.Event{Name: name, Level: level, Message: msg, Attrs: attrs})
}

// sleep waits for d, returning early with ctx's error if it is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
