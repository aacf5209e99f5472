package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/store"
)

// usageStore serves canned usage records and captures the filter it saw.
type usageStore struct {
	records []model.TokenUsageRecord
	filter  store.UsageFilter
}

func (s *usageStore) ListUsage(_ context.Context, f store.UsageFilter) ([]model.TokenUsageRecord, error) {
	s.filter = f
	return s.records, nil
}

func (s *usageStore) SaveResult(context.Context, *model.ExtractionBatchResult) error { return nil }

func (s *usageStore) GetResult(context.Context, string) (*model.ExtractionBatchResult, error) {
	return nil, nil
}

func (s *usageStore) ListResults(context.Context, store.ResultFilter) ([]model.ExtractionBatchResult, error) {
	return nil, nil
}

func (s *usageStore) RecordUsage(context.Context, model.TokenUsageRecord) error { return nil }

func (s *usageStore) Migrate(context.Context) error { return nil }

func (s *usageStore) Close() error { return nil }

func rec(m string, in, out int64, cost string, callType model.APICallType) model.TokenUsageRecord {
	return model.TokenUsageRecord{
		ModelName:    m,
		InputTokens:  in,
		OutputTokens: out,
		TotalCost:    decimal.RequireFromString(cost),
		APICallType:  callType,
	}
}

func TestCollect_Aggregates(t *testing.T) {
	st := &usageStore{records: []model.TokenUsageRecord{
		rec("claude-sonnet-4-5-20250929", 100000, 20000, "0.6", model.CallTypeExtraction),
		rec("claude-sonnet-4-5-20250929", 50000, 10000, "0.3", model.CallTypeExtractionRetry),
		rec("claude-haiku-4-5", 1000, 200, "0.0041", model.CallTypeExtraction),
	}}

	summary, err := NewUsageCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Calls)
	assert.Equal(t, 1, summary.RetryCalls)
	assert.Equal(t, int64(151000), summary.InputTokens)
	assert.Equal(t, int64(30200), summary.OutputTokens)
	assert.True(t, summary.TotalCostUSD.Equal(decimal.RequireFromString("0.9041")),
		"got %s", summary.TotalCostUSD)
	assert.Equal(t, 24, summary.LookbackHours)

	require.Len(t, summary.ByModel, 2)
	assert.Equal(t, "claude-sonnet-4-5-20250929", summary.ByModel[0].ModelName)
	assert.Equal(t, 2, summary.ByModel[0].Calls)

	// Per-model totals sum to the overall total exactly.
	perModel := decimal.Zero
	for _, mu := range summary.ByModel {
		perModel = perModel.Add(mu.TotalCostUSD)
	}
	assert.True(t, perModel.Equal(summary.TotalCostUSD))
}

func TestCollect_LookbackWindow(t *testing.T) {
	st := &usageStore{}

	_, err := NewUsageCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), st.filter.Since, time.Minute)

	_, err = NewUsageCollector(st).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, st.filter.Since.IsZero(), "zero lookback means all time")
}

func TestCollect_Empty(t *testing.T) {
	summary, err := NewUsageCollector(&usageStore{}).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, summary.Calls)
	assert.True(t, summary.TotalCostUSD.IsZero())
	assert.Empty(t, summary.ByModel)
}
