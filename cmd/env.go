package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/cost"
	"github.com/sells-group/prodex-cli/internal/extract"
	"github.com/sells-group/prodex-cli/internal/fetch"
	"github.com/sells-group/prodex-cli/internal/job"
	"github.com/sells-group/prodex-cli/internal/pdfsource"
	"github.com/sells-group/prodex-cli/internal/reconcile"
	"github.com/sells-group/prodex-cli/internal/scorer"
	"github.com/sells-group/prodex-cli/internal/store"
	anthropicpkg "github.com/sells-group/prodex-cli/pkg/anthropic"
	"github.com/sells-group/prodex-cli/pkg/websearch"
)

// runnerEnv holds the store, renderer, and job runner shared by the
// extract/batch/serve commands.
type runnerEnv struct {
	Store    store.Store
	Runner   *job.Runner
	renderer fetch.Renderer
}

// Close releases resources held by the environment.
func (e *runnerEnv) Close() {
	if e.renderer != nil {
		e.renderer.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initRunner sets up the store, provider clients, and all pipeline stages.
// Callers should defer env.Close(). When disableRender is true Tier 3 is
// skipped, which keeps headless Chrome out of environments without it.
func initRunner(ctx context.Context, disableRender bool) (*runnerEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	searchClient := websearch.NewClient(cfg.Search.Key,
		websearch.WithBaseURL(cfg.Search.BaseURL),
		websearch.WithRateLimit(cfg.Search.RatePerSec, cfg.Search.Burst),
	)
	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithRateLimit(cfg.Anthropic.RatePerSec, cfg.Anthropic.Burst),
	)

	var renderer fetch.Renderer
	if !disableRender {
		renderer = fetch.NewBrowserPool(cfg.Render)
	} else {
		zap.L().Info("tier-3 rendering disabled")
	}
	fetcher := fetch.NewFetcher(cfg.Fetch, cfg.Render, renderer)

	documents, err := pdfsource.NewAdapter(cfg.PDF)
	if err != nil {
		if renderer != nil {
			renderer.Close()
		}
		_ = st.Close()
		return nil, err
	}

	table, err := cost.NewTable(cfg.Pricing)
	if err != nil {
		if renderer != nil {
			renderer.Close()
		}
		_ = st.Close()
		return nil, err
	}
	accountant := cost.NewAccountant(table, st)

	engine := extract.NewEngine(aiClient, accountant, cfg.Extract, cfg.Anthropic)
	runner := job.NewRunner(cfg, st, searchClient, scorer.New(cfg.Scorer), fetcher, documents, engine, reconcile.New())

	return &runnerEnv{Store: st, Runner: runner, renderer: renderer}, nil
}
