package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/agent"
	"github.com/sells-group/leadgen-cli/internal/contact"
	"github.com/sells-group/leadgen-cli/internal/dedupe"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/fetcher"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/planner"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/sink"
	"github.com/sells-group/leadgen-cli/pkg/overpass"
)

// pipelineEnv holds the initialized sink and agent needed by the
// run/serve/leads commands.
type pipelineEnv struct {
	Sink  sink.Sink
	Agent *agent.Agent
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Sink != nil {
		_ = pe.Sink.Close()
	}
}

// admitAll stands in for the duplicate filter when dedupe is disabled.
type admitAll struct{}

func (admitAll) IsDuplicate(context.Context, model.Lead) bool { return false }

func initSink(ctx context.Context) (sink.Sink, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return sink.NewSQLite(ctx, cfg.Store.Path)
	case "postgres":
		return sink.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "xlsx":
		return sink.NewXLSX(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initPipeline sets up the sink, source client, and pipeline stages, and
// builds the Agent. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initSink(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init sink")
	}

	client := overpass.NewClient(
		overpass.WithBaseURL(cfg.Overpass.BaseURL),
		overpass.WithUserAgent(cfg.Overpass.UserAgent),
		overpass.WithRateLimit(cfg.Overpass.RequestsPerSec, cfg.Overpass.Burst),
	)
	retry := resilience.RetryConfig{
		MaxAttempts: cfg.Overpass.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.Overpass.RetryBaseMillis) * time.Millisecond,
	}
	f := fetcher.New(client, retry)

	enrichTimeout := time.Duration(cfg.Enrich.TimeoutSecs) * time.Second
	var enricher enrich.Enricher
	switch cfg.Enrich.Provider {
	case "ollama":
		enricher, err = enrich.NewOllamaEnricher(cfg.Enrich.OllamaURL, cfg.Enrich.OllamaModel, enrichTimeout)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "init ollama enricher")
		}
		zap.L().Info("llm enrichment enabled", zap.String("provider", "ollama"), zap.String("model", cfg.Enrich.OllamaModel))
	case "anthropic":
		enricher = enrich.NewAnthropicEnricher(cfg.Enrich.AnthropicKey, cfg.Enrich.AnthropicModel, enrichTimeout)
		zap.L().Info("llm enrichment enabled", zap.String("provider", "anthropic"), zap.String("model", cfg.Enrich.AnthropicModel))
	default:
		zap.L().Debug("llm enrichment disabled")
	}
	normalizer := enrich.NewNormalizer(enricher)

	pages := scrape.NewHTTPPageFetcher(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second)
	backfiller := contact.NewBackfiller(pages)

	// Dedupe is best-effort: an unreachable embedder disables the filter
	// rather than blocking the run.
	var dupes agent.DuplicateFilter = admitAll{}
	if cfg.Dedupe.Enabled {
		embedder, err := dedupe.NewOllamaEmbedder(cfg.Dedupe.OllamaURL, cfg.Dedupe.EmbedModel)
		if err != nil {
			zap.L().Warn("embedder init failed, duplicate filter disabled", zap.Error(err))
		} else {
			dupes = dedupe.NewFilter(embedder, cfg.Dedupe.SimilarityThreshold)
		}
	}

	a := agent.New(planner.Plan, f, normalizer, backfiller, dupes, st, agent.Options{
		Limit:    cfg.Fetch.Limit,
		PageSize: cfg.Fetch.PageSize,
		Paginate: cfg.Fetch.Paginate,
	})

	return &pipelineEnv{Sink: st, Agent: a}, nil
}
