// Package extract consolidates all surviving source content into a single
// structured LLM request per batch and parses the response into per-source
// property claims. One call per batch instead of one per source trades
// per-source isolation for latency and cost; the reconciler compensates by
// cross-checking claims afterwards.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/cost"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/monitoring"
	"github.com/sells-group/prodex-cli/internal/resilience"
	"github.com/sells-group/prodex-cli/pkg/anthropic"
)

// ErrorKind classifies a failed batch.
type ErrorKind string

const (
	ErrMalformed       ErrorKind = "malformed_response"
	ErrContextOverflow ErrorKind = "context_overflow"
	ErrProvider        ErrorKind = "provider_error"
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrNoContent       ErrorKind = "no_content"
)

// Error is a batch-level extraction failure with an explicit reason. A
// failed batch is never silently defaulted to empty values.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Reason + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// BatchInput is everything needed for one consolidated extraction call.
type BatchInput struct {
	ArticleNumber string
	ProductName   string
	Properties    []model.PropertyDefinition
	Contents      []model.FetchResult // successful fetches only, web + PDF
	UserID        string              // optional, for usage attribution
}

// Engine performs batched extraction. Every LLM call it makes is wrapped by
// the cost accountant before the response is used.
type Engine struct {
	client     anthropic.Client
	accountant *cost.Accountant
	cfg        config.ExtractConfig
	aiCfg      config.AnthropicConfig
}

// NewEngine creates an Engine.
func NewEngine(client anthropic.Client, accountant *cost.Accountant, cfg config.ExtractConfig, aiCfg config.AnthropicConfig) *Engine {
	return &Engine{client: client, accountant: accountant, cfg: cfg, aiCfg: aiCfg}
}

// ExtractBatch runs one consolidated extraction. On a malformed response it
// retries exactly once with a stricter re-prompt; transient provider errors
// are retried with backoff up to a small fixed bound. Failures surface as
// *Error with an explicit kind and reason.
func (e *Engine) ExtractBatch(ctx context.Context, in BatchInput) ([]model.ExtractedPropertyClaim, error) {
	if len(in.Contents) == 0 {
		monitoring.ExtractionBatches.WithLabelValues("failure").Inc()
		return nil, &Error{Kind: ErrNoContent, Reason: "no sources yielded content"}
	}

	start := time.Now()

	claims, err := e.attempt(ctx, in, false, model.CallTypeExtraction)
	if err != nil {
		var bErr *Error
		if eris.As(err, &bErr) && bErr.Kind == ErrMalformed {
			zap.L().Warn("extract: malformed response, re-prompting once",
				zap.String("product", in.ProductName),
				zap.Error(err),
			)
			claims, err = e.attempt(ctx, in, true, model.CallTypeExtractionRetry)
		}
	}
	if err != nil {
		monitoring.ExtractionBatches.WithLabelValues("failure").Inc()
		return nil, err
	}

	monitoring.ExtractionBatches.WithLabelValues("success").Inc()
	zap.L().Info("extract: batch complete",
		zap.String("product", in.ProductName),
		zap.Int("sources", len(in.Contents)),
		zap.Int("claims", len(claims)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return claims, nil
}

// attempt performs one prompt-call-parse cycle.
func (e *Engine) attempt(ctx context.Context, in BatchInput, stricter bool, callType model.APICallType) ([]model.ExtractedPropertyClaim, error) {
	prompt := buildPrompt(in.ArticleNumber, in.ProductName, in.Properties, in.Contents, e.cfg.ContextBudgetChars, stricter)

	resp, err := e.call(ctx, prompt, in.UserID, callType)
	if err != nil {
		return nil, err
	}

	claims, err := parseClaims(resp.Text, len(in.Contents))
	if err != nil {
		return nil, &Error{Kind: ErrMalformed, Reason: "response failed schema validation", Err: err}
	}
	return claims, nil
}

// call sends one message, retrying transient provider errors with backoff,
// and accounts for usage of every successful call.
func (e *Engine) call(ctx context.Context, prompt, userID string, callType model.APICallType) (*anthropic.MessageResponse, error) {
	policy := resilience.DefaultPolicy()
	if e.cfg.MaxRetries > 0 {
		policy.Attempts = e.cfg.MaxRetries
	}
	policy.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	resp, err := resilience.Retry(ctx, policy, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.aiCfg.Model,
			MaxTokens: int64(e.aiCfg.MaxTokens),
			System:    systemText,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	rec := e.accountant.Account(ctx, userID, e.aiCfg.Model, callType, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	monitoring.LLMTokens.WithLabelValues(rec.ModelName, "input").Add(float64(rec.InputTokens))
	monitoring.LLMTokens.WithLabelValues(rec.ModelName, "output").Add(float64(rec.OutputTokens))
	monitoring.LLMCostUSD.WithLabelValues(rec.ModelName).Add(rec.TotalCost.InexactFloat64())

	return resp, nil
}

// classifyProviderError maps an exhausted provider call to a batch error.
func classifyProviderError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return &Error{Kind: ErrRateLimited, Reason: "provider rate limit not cleared within retry budget", Err: err}
	case strings.Contains(msg, "context") && (strings.Contains(msg, "long") || strings.Contains(msg, "exceed")):
		return &Error{Kind: ErrContextOverflow, Reason: "consolidated prompt exceeded model context", Err: err}
	default:
		return &Error{Kind: ErrProvider, Reason: "provider call failed", Err: err}
	}
}
