// Package fetch resolves candidate sources to raw text content through an
// escalating three-tier strategy: plain HTTP, JS-aware HTTP, and headless
// browser rendering from a bounded pool.
package fetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/monitoring"
)

// sourceState is the per-source escalation state machine.
type sourceState int

const (
	stateUntried sourceState = iota
	stateTier1Failed
	stateTier2Failed
	stateTerminal
)

func (s sourceState) String() string {
	switch s {
	case stateUntried:
		return "untried"
	case stateTier1Failed:
		return "tier1_failed"
	case stateTier2Failed:
		return "tier2_failed"
	default:
		return "terminal"
	}
}

// tier is one escalation step of the fetch strategy.
type tier interface {
	Tier() model.FetchTier
	Timeout() time.Duration
	Fetch(ctx context.Context, url string) (*page, error)
}

// Fetcher runs the tiered fetch for whole source batches.
type Fetcher struct {
	tiers    []tier
	limiters *domainLimiters
}

// NewFetcher creates a Fetcher. renderer may be nil, in which case Tier 3 is
// disabled and Tier-2 failures are terminal.
func NewFetcher(cfg config.FetchConfig, render config.RenderConfig, renderer Renderer) *Fetcher {
	tiers := []tier{
		newTier1(cfg.UserAgent, cfg.MaxBodyBytes, cfg.MinContentLength, time.Duration(cfg.Tier1TimeoutSecs)*time.Second),
		newTier2(cfg.UserAgent, cfg.MaxBodyBytes, cfg.MinContentLength, time.Duration(cfg.Tier2TimeoutSecs)*time.Second),
	}
	if renderer != nil {
		tiers = append(tiers, newTier3(renderer, cfg.MinContentLength, time.Duration(cfg.Tier3TimeoutSecs)*time.Second))
	}
	return &Fetcher{
		tiers:    tiers,
		limiters: newDomainLimiters(cfg.DomainRatePerSec, cfg.DomainBurst),
	}
}

// newFetcherWithTiers is the test seam for injecting fake tiers.
func newFetcherWithTiers(tiers []tier) *Fetcher {
	return &Fetcher{
		tiers:    tiers,
		limiters: newDomainLimiters(1000, 1000),
	}
}

// FetchAll fetches every source concurrently and waits for all of them.
// Exactly one FetchResult is returned per input source, success or failure;
// no source's failure aborts or delays the others. Cancellation is
// cooperative: in-flight fetches observe ctx and give up.
func (f *Fetcher) FetchAll(ctx context.Context, sources []model.Source) []model.FetchResult {
	results := make([]model.FetchResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.fetchOne(ctx, src)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	zap.L().Info("fetch: batch complete",
		zap.Int("attempted", len(sources)),
		zap.Int("succeeded", succeeded),
	)

	return results
}

// fetchOne walks one source through the tier state machine until a tier
// succeeds or all tiers are exhausted.
func (f *Fetcher) fetchOne(ctx context.Context, src model.Source) model.FetchResult {
	start := time.Now()
	state := stateUntried
	lastKind := model.FetchErrHTTP
	lastTier := model.Tier1

	for _, t := range f.tiers {
		lastTier = t.Tier()

		if err := f.limiters.wait(ctx, src.URL); err != nil {
			lastKind = model.FetchErrTimeout
			break
		}

		tctx, cancel := context.WithTimeout(ctx, t.Timeout())
		pg, err := t.Fetch(tctx, src.URL)
		cancel()

		if err == nil {
			monitoring.FetchOutcomes.WithLabelValues(t.Tier().String(), "success").Inc()
			return model.FetchResult{
				Source:        src,
				TierUsed:      t.Tier(),
				RawContent:    pg.Text,
				ContentLength: len(pg.Text),
				Success:       true,
				DurationMs:    time.Since(start).Milliseconds(),
			}
		}

		lastKind = classify(err)
		zap.L().Debug("fetch: tier failed, escalating",
			zap.String("url", src.URL),
			zap.String("tier", t.Tier().String()),
			zap.String("state", state.String()),
			zap.String("kind", string(lastKind)),
			zap.Error(err),
		)
		monitoring.FetchOutcomes.WithLabelValues(t.Tier().String(), "failure").Inc()
		monitoring.TierEscalations.WithLabelValues(t.Tier().String()).Inc()

		switch t.Tier() {
		case model.Tier1:
			state = stateTier1Failed
		case model.Tier2:
			state = stateTier2Failed
		}

		// Abandon the escalation chain on cancellation; the result is
		// discarded by the caller anyway.
		if ctx.Err() != nil {
			break
		}
	}

	state = stateTerminal
	zap.L().Warn("fetch: all tiers exhausted",
		zap.String("url", src.URL),
		zap.String("state", state.String()),
		zap.String("last_kind", string(lastKind)),
	)

	return model.FetchResult{
		Source:     src,
		TierUsed:   lastTier,
		Success:    false,
		ErrorKind:  lastKind,
		DurationMs: time.Since(start).Milliseconds(),
	}
}
