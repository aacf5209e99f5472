package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// APICallType labels what an LLM call was for.
type APICallType string

const (
	CallTypeExtraction      APICallType = "extraction"
	CallTypeExtractionRetry APICallType = "extraction_retry"
)

// TokenUsageRecord accounts for one LLM call. Append-only; costs are
// fixed-decimal USD so that TotalCost equals InputCost + OutputCost exactly.
type TokenUsageRecord struct {
	APICallID    string          `json:"api_call_id"`
	UserID       string          `json:"user_id,omitempty"` // empty for system/anonymous calls
	ModelName    string          `json:"model_name"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	InputCost    decimal.Decimal `json:"input_cost"`
	OutputCost   decimal.Decimal `json:"output_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	APICallType  APICallType     `json:"api_call_type"`
	Timestamp    time.Time       `json:"timestamp"`
}
