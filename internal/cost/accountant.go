package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/model"
)

// Recorder persists usage records. Implementations must treat records as
// append-only.
type Recorder interface {
	RecordUsage(ctx context.Context, rec model.TokenUsageRecord) error
}

// Accountant prices LLM calls against a Table and hands records to a
// Recorder. Recording is best-effort: a persistence failure is logged and
// never propagated to the wrapped call.
type Accountant struct {
	table    *Table
	recorder Recorder
}

// NewAccountant creates an Accountant. recorder may be nil, in which case
// records are only logged.
func NewAccountant(table *Table, recorder Recorder) *Accountant {
	return &Accountant{table: table, recorder: recorder}
}

// NewRecord computes a priced usage record for one call. Unknown models get
// zero cost but are still recorded for correlation. userID may be empty for
// system/anonymous calls.
func (a *Accountant) NewRecord(userID, modelName string, callType model.APICallType, inputTokens, outputTokens int64) model.TokenUsageRecord {
	rec := model.TokenUsageRecord{
		APICallID:    newCallID(),
		UserID:       userID,
		ModelName:    modelName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		APICallType:  callType,
		Timestamp:    time.Now().UTC(),
	}

	rate, ok := a.table.Rate(modelName)
	if !ok {
		zap.L().Warn("cost: no pricing for model, recording zero cost",
			zap.String("model", modelName),
		)
		rec.InputCost = decimal.Zero
		rec.OutputCost = decimal.Zero
		rec.TotalCost = decimal.Zero
		return rec
	}

	// Shift(-6) divides by one million exactly; no rounding occurs anywhere
	// in this computation.
	rec.InputCost = rate.InputPerMTok.Mul(decimal.NewFromInt(inputTokens)).Shift(-6)
	rec.OutputCost = rate.OutputPerMTok.Mul(decimal.NewFromInt(outputTokens)).Shift(-6)
	rec.TotalCost = rec.InputCost.Add(rec.OutputCost)
	return rec
}

// Account prices and records one call. The returned record is always valid
// even when persistence fails.
func (a *Accountant) Account(ctx context.Context, userID, modelName string, callType model.APICallType, inputTokens, outputTokens int64) model.TokenUsageRecord {
	rec := a.NewRecord(userID, modelName, callType, inputTokens, outputTokens)

	zap.L().Info("cost: llm call accounted",
		zap.String("api_call_id", rec.APICallID),
		zap.String("model", rec.ModelName),
		zap.String("call_type", string(rec.APICallType)),
		zap.Int64("input_tokens", rec.InputTokens),
		zap.Int64("output_tokens", rec.OutputTokens),
		zap.String("total_cost_usd", rec.TotalCost.String()),
	)

	if a.recorder != nil {
		if err := a.recorder.RecordUsage(ctx, rec); err != nil {
			zap.L().Warn("cost: failed to persist usage record",
				zap.String("api_call_id", rec.APICallID),
				zap.Error(err),
			)
		}
	}
	return rec
}

// newCallID builds a globally unique call ID: timestamp plus random suffix,
// sortable by creation time.
func newCallID() string {
	return fmt.Sprintf("%d-%s", time.Now().UTC().UnixNano(), uuid.NewString()[:8])
}
