// Package agent orchestrates a lead generation run: plan the query, fetch
// raw records, normalize, backfill contacts, filter duplicates, and write
// accepted leads to the sink.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/sink"
)

// ErrRunActive is returned when a run is requested while another is in
// flight. The pipeline supports a single active run.
var ErrRunActive = eris.New("agent: run already active")

const (
	// DefaultLimit bounds a non-paginated run.
	DefaultLimit = 200
	// DefaultPageSize is the page size for paginated runs.
	DefaultPageSize = 50
)

// PlanFunc turns a free-form query into a search spec.
type PlanFunc func(query string) model.SearchSpec

// Fetcher pulls raw records from the source.
type Fetcher interface {
	Fetch(ctx context.Context, spec model.SearchSpec, limit, offset int) ([]model.RawRecord, error)
	FetchAll(ctx context.Context, spec model.SearchSpec, pageSize int, fn func(page []model.RawRecord) error) error
}

// Normalizer converts a raw record into a lead. ok is false when the
// record cannot yield a lead (no name).
type Normalizer interface {
	Normalize(ctx context.Context, raw model.RawRecord) (lead model.Lead, ok bool)
}

// Backfiller fills missing contact fields on a lead.
type Backfiller interface {
	Backfill(ctx context.Context, lead model.Lead) model.Lead
}

// DuplicateFilter reports whether a lead duplicates one already seen.
type DuplicateFilter interface {
	IsDuplicate(ctx context.Context, lead model.Lead) bool
}

// Options tune how a run fetches records.
type Options struct {
	// Limit caps a bounded run. Ignored when Paginate is set.
	Limit int
	// PageSize is the page size for paginated runs.
	PageSize int
	// Paginate walks the source page by page instead of a single
	// bounded fetch.
	Paginate bool
}

// Agent runs the pipeline. At most one run is active at a time; stats for
// the current or most recent run are read through Stats.
type Agent struct {
	plan      PlanFunc
	fetcher   Fetcher
	normalize Normalizer
	backfill  Backfiller
	dupes     DuplicateFilter
	store     sink.Sink
	opts      Options

	mu      sync.Mutex
	running bool
	stats   model.RunStats
}

// New assembles an agent from its pipeline stages.
func New(plan PlanFunc, fetcher Fetcher, normalize Normalizer, backfill Backfiller, dupes DuplicateFilter, store sink.Sink, opts Options) *Agent {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Agent{
		plan:      plan,
		fetcher:   fetcher,
		normalize: normalize,
		backfill:  backfill,
		dupes:     dupes,
		store:     store,
		opts:      opts,
		stats:     model.RunStats{Status: model.RunStatusIdle},
	}
}

// RunHandle tracks a background run started with Start.
type RunHandle struct {
	done chan struct{}
}

// Done is closed when the run finishes.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run finishes.
func (h *RunHandle) Wait() { <-h.done }

// Start launches a run in the background. It returns ErrRunActive if a
// run is already in flight.
func (a *Agent) Start(query string) (*RunHandle, error) {
	if !a.tryStart(query) {
		return nil, ErrRunActive
	}
	h := &RunHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		// The error is already surfaced through the stats status.
		_ = a.execute(context.Background(), query)
	}()
	return h, nil
}

// Run executes a run synchronously. It returns ErrRunActive if a run is
// already in flight.
func (a *Agent) Run(ctx context.Context, query string) error {
	if !a.tryStart(query) {
		return ErrRunActive
	}
	return a.execute(ctx, query)
}

// Stats returns a snapshot of the current or most recent run.
func (a *Agent) Stats() model.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *Agent) tryStart(query string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	now := time.Now().UTC()
	a.stats = model.RunStats{
		Status:    model.RunStatusRunning,
		LastQuery: query,
		StartedAt: &now,
	}
	return true
}

func (a *Agent) finish(runErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now().UTC()
	a.stats.FinishedAt = &now
	if runErr != nil {
		a.stats.Status = model.RunStatusError
	} else {
		a.stats.Status = model.RunStatusDone
	}
	a.running = false
}

func (a *Agent) bump(f func(s *model.RunStats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f(&a.stats)
}

func (a *Agent) execute(ctx context.Context, query string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("agent: run panic: %v", r)
			zap.L().Error("run panicked", zap.Any("panic", r))
		}
		a.finish(err)
		if err != nil {
			zap.L().Error("run failed", zap.String("query", query), zap.Error(err))
		}
	}()

	spec := a.plan(query)
	zap.L().Info("run started",
		zap.String("query", query),
		zap.String("kind", string(spec.Kind)),
		zap.String("entity", spec.EntityHint),
		zap.String("location", spec.Location))

	if a.opts.Paginate {
		err = a.fetcher.FetchAll(ctx, spec, a.opts.PageSize, func(page []model.RawRecord) error {
			a.processPage(ctx, spec, page)
			return nil
		})
	} else {
		var records []model.RawRecord
		records, err = a.fetcher.Fetch(ctx, spec, a.opts.Limit, 0)
		if err == nil {
			a.processPage(ctx, spec, records)
		}
	}
	if err != nil {
		return eris.Wrap(err, "agent: fetch")
	}

	stats := a.Stats()
	zap.L().Info("run finished",
		zap.Int("pages", stats.PagesProcessed),
		zap.Int("leads", stats.LeadsWritten),
		zap.Int("duplicates", stats.SkippedDuplicates),
		zap.Int("errors", stats.Errors))
	return nil
}

func (a *Agent) processPage(ctx context.Context, spec model.SearchSpec, page []model.RawRecord) {
	a.bump(func(s *model.RunStats) { s.PagesProcessed++ })
	for _, rec := range page {
		a.processRecord(ctx, spec, rec)
	}
}

// processRecord isolates failures to the record: errors are counted and
// the run moves on.
func (a *Agent) processRecord(ctx context.Context, spec model.SearchSpec, rec model.RawRecord) {
	defer func() {
		if r := recover(); r != nil {
			a.bump(func(s *model.RunStats) { s.Errors++ })
			zap.L().Error("record processing panicked",
				zap.Int64("record_id", rec.ID), zap.Any("panic", r))
		}
	}()

	lead, ok := a.normalize.Normalize(ctx, rec)
	if !ok {
		return
	}

	// Tag-text location check is observational only. Elements inside the
	// search area rarely repeat the area name in their tags.
	if spec.Location != "" && !rec.ContainsText(spec.Location) {
		zap.L().Debug("record tags do not mention the search location",
			zap.Int64("record_id", rec.ID), zap.String("location", spec.Location))
	}

	lead = a.backfill.Backfill(ctx, lead)

	if a.dupes.IsDuplicate(ctx, lead) {
		a.bump(func(s *model.RunStats) { s.SkippedDuplicates++ })
		zap.L().Debug("skipping duplicate lead", zap.String("name", lead.Name))
		return
	}

	if err := a.store.Append(ctx, lead); err != nil {
		a.bump(func(s *model.RunStats) { s.Errors++ })
		zap.L().Warn("failed to persist lead", zap.String("name", lead.Name), zap.Error(err))
		return
	}
	a.bump(func(s *model.RunStats) { s.LeadsWritten++ })
}
