package cost

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
)

type captureRecorder struct {
	records []model.TokenUsageRecord
	err     error
}

func (r *captureRecorder) RecordUsage(_ context.Context, rec model.TokenUsageRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

func TestNewRecord_ExactDecimalPricing(t *testing.T) {
	a := NewAccountant(DefaultTable(), nil)

	rec := a.NewRecord("u-1", "claude-sonnet-4-5-20250929", model.CallTypeExtraction, 100000, 20000)

	// 100k input at $3.00/MTok = $0.30; 20k output at $15.00/MTok = $0.30.
	assert.True(t, rec.InputCost.Equal(decimal.RequireFromString("0.3")), "input cost %s", rec.InputCost)
	assert.True(t, rec.OutputCost.Equal(decimal.RequireFromString("0.3")), "output cost %s", rec.OutputCost)
	assert.True(t, rec.TotalCost.Equal(rec.InputCost.Add(rec.OutputCost)))
	assert.Equal(t, int64(100000), rec.InputTokens)
	assert.Equal(t, model.CallTypeExtraction, rec.APICallType)
	assert.NotEmpty(t, rec.APICallID)
}

func TestNewRecord_PricingAcrossModels(t *testing.T) {
	a := NewAccountant(DefaultTable(), nil)

	tests := []struct {
		model      string
		inTokens   int64
		outTokens  int64
		wantInput  string
		wantOutput string
		wantTotal  string
	}{
		// $0.80/$4.00 per MTok.
		{"claude-haiku-4-5-20251001", 250000, 125000, "0.2", "0.5", "0.7"},
		// $3.00/$15.00 per MTok.
		{"claude-sonnet-4-5-20250929", 100000, 20000, "0.3", "0.3", "0.6"},
		// $15.00/$75.00 per MTok.
		{"claude-opus-4-6", 40000, 10000, "0.6", "0.75", "1.35"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			rec := a.NewRecord("", tt.model, model.CallTypeExtraction, tt.inTokens, tt.outTokens)

			assert.True(t, rec.InputCost.Equal(decimal.RequireFromString(tt.wantInput)),
				"input cost %s", rec.InputCost)
			assert.True(t, rec.OutputCost.Equal(decimal.RequireFromString(tt.wantOutput)),
				"output cost %s", rec.OutputCost)
			assert.True(t, rec.TotalCost.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total cost %s", rec.TotalCost)
			assert.True(t, rec.TotalCost.Equal(rec.InputCost.Add(rec.OutputCost)))
		})
	}
}

func TestNewRecord_TotalIsExactSumForAwkwardCounts(t *testing.T) {
	a := NewAccountant(DefaultTable(), nil)

	// Token counts chosen so float math would drift.
	rec := a.NewRecord("", "claude-haiku-4-5-20251001", model.CallTypeExtraction, 333333, 77777)

	assert.True(t, rec.TotalCost.Equal(rec.InputCost.Add(rec.OutputCost)),
		"total %s != input %s + output %s", rec.TotalCost, rec.InputCost, rec.OutputCost)
}

func TestNewRecord_UnknownModelZeroCost(t *testing.T) {
	a := NewAccountant(DefaultTable(), nil)

	rec := a.NewRecord("", "some-future-model", model.CallTypeExtraction, 1000, 1000)

	assert.True(t, rec.InputCost.IsZero())
	assert.True(t, rec.OutputCost.IsZero())
	assert.True(t, rec.TotalCost.IsZero())
	assert.Equal(t, int64(1000), rec.InputTokens)
}

func TestAccount_PersistsRecord(t *testing.T) {
	rec := &captureRecorder{}
	a := NewAccountant(DefaultTable(), rec)

	got := a.Account(context.Background(), "u-7", "claude-sonnet-4-5-20250929", model.CallTypeExtractionRetry, 500, 100)

	require.Len(t, rec.records, 1)
	assert.Equal(t, got.APICallID, rec.records[0].APICallID)
	assert.Equal(t, "u-7", rec.records[0].UserID)
	assert.Equal(t, model.CallTypeExtractionRetry, rec.records[0].APICallType)
}

func TestAccount_RecorderFailureNeverPropagates(t *testing.T) {
	rec := &captureRecorder{err: assert.AnError}
	a := NewAccountant(DefaultTable(), rec)

	got := a.Account(context.Background(), "", "claude-sonnet-4-5-20250929", model.CallTypeExtraction, 10, 10)
	assert.NotEmpty(t, got.APICallID)
	assert.Len(t, rec.records, 1)
}

func TestNewTable_FromConfig(t *testing.T) {
	table, err := NewTable(config.PricingConfig{
		Models: map[string]config.ModelPricing{
			"custom-model": {InputPerMTok: "1.25", OutputPerMTok: "6.50"},
		},
	})
	require.NoError(t, err)

	rate, ok := table.Rate("custom-model")
	require.True(t, ok)
	assert.True(t, rate.InputPerMTok.Equal(decimal.RequireFromString("1.25")))

	_, ok = table.Rate("claude-sonnet-4-5-20250929")
	assert.False(t, ok, "config table replaces the default table")
}

func TestNewTable_BadRate(t *testing.T) {
	_, err := NewTable(config.PricingConfig{
		Models: map[string]config.ModelPricing{
			"bad": {InputPerMTok: "not-a-number", OutputPerMTok: "1.0"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse input rate")
}

func TestNewTable_EmptyConfigUsesDefaults(t *testing.T) {
	table, err := NewTable(config.PricingConfig{})
	require.NoError(t, err)
	_, ok := table.Rate("claude-sonnet-4-5-20250929")
	assert.True(t, ok)
}
