package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/store"
)

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	ModelName    string          `json:"model_name"`
	Calls        int             `json:"calls"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	TotalCostUSD decimal.Decimal `json:"total_cost_usd"`
}

// UsageSummary is a point-in-time aggregation of LLM spend over a lookback
// window. Costs stay decimal end to end; per-model totals sum to the
// overall total exactly.
type UsageSummary struct {
	Calls         int             `json:"calls"`
	RetryCalls    int             `json:"retry_calls"`
	InputTokens   int64           `json:"input_tokens"`
	OutputTokens  int64           `json:"output_tokens"`
	TotalCostUSD  decimal.Decimal `json:"total_cost_usd"`
	ByModel       []ModelUsage    `json:"by_model,omitempty"`
	LookbackHours int             `json:"lookback_hours"`
	CollectedAt   time.Time       `json:"collected_at"`
}

// UsageCollector aggregates persisted usage records.
type UsageCollector struct {
	store store.Store
}

// NewUsageCollector creates a UsageCollector.
func NewUsageCollector(st store.Store) *UsageCollector {
	return &UsageCollector{store: st}
}

// Collect summarizes usage over the given lookback window. A lookback of
// zero or less summarizes all recorded usage.
func (c *UsageCollector) Collect(ctx context.Context, lookbackHours int) (*UsageSummary, error) {
	filter := store.UsageFilter{Limit: 100000}
	if lookbackHours > 0 {
		filter.Since = time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	}

	records, err := c.store.ListUsage(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list usage")
	}

	summary := &UsageSummary{
		TotalCostUSD:  decimal.Zero,
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	byModel := make(map[string]*ModelUsage)
	var order []string
	for _, rec := range records {
		summary.Calls++
		if rec.APICallType == model.CallTypeExtractionRetry {
			summary.RetryCalls++
		}
		summary.InputTokens += rec.InputTokens
		summary.OutputTokens += rec.OutputTokens
		summary.TotalCostUSD = summary.TotalCostUSD.Add(rec.TotalCost)

		mu, ok := byModel[rec.ModelName]
		if !ok {
			mu = &ModelUsage{ModelName: rec.ModelName, TotalCostUSD: decimal.Zero}
			byModel[rec.ModelName] = mu
			order = append(order, rec.ModelName)
		}
		mu.Calls++
		mu.InputTokens += rec.InputTokens
		mu.OutputTokens += rec.OutputTokens
		mu.TotalCostUSD = mu.TotalCostUSD.Add(rec.TotalCost)
	}

	for _, name := range order {
		summary.ByModel = append(summary.ByModel, *byModel[name])
	}
	return summary, nil
}
