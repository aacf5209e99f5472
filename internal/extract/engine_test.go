package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/cost"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/resilience"
	"github.com/sells-group/prodex-cli/pkg/anthropic"
)

// fakeAI returns scripted responses in order; errors short-circuit.
type fakeAI struct {
	responses []*anthropic.MessageResponse
	errs      []error
	requests  []anthropic.MessageRequest
}

func (f *fakeAI) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, eris.New("no scripted response")
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:    "msg_test",
		Model: "claude-sonnet-4-5-20250929",
		Text:  text,
		Usage: anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
}

func newTestEngine(ai anthropic.Client, rec cost.Recorder) *Engine {
	return NewEngine(ai,
		cost.NewAccountant(cost.DefaultTable(), rec),
		config.ExtractConfig{ContextBudgetChars: 100000, MaxRetries: 1},
		config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096},
	)
}

type usageSink struct {
	records []model.TokenUsageRecord
}

func (s *usageSink) RecordUsage(_ context.Context, rec model.TokenUsageRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func testInput() BatchInput {
	return BatchInput{
		ArticleNumber: "P-100",
		ProductName:   "Acme Pump",
		Properties: []model.PropertyDefinition{
			{Name: "Height", OrderIndex: 0},
		},
		Contents: []model.FetchResult{
			{
				Source:     model.Source{URL: "https://acme-pumps.com/p-100", Title: "Datasheet"},
				TierUsed:   model.Tier1,
				RawContent: "Height: 1270 mm",
				Success:    true,
			},
		},
	}
}

func TestExtractBatch_Success(t *testing.T) {
	sink := &usageSink{}
	ai := &fakeAI{responses: []*anthropic.MessageResponse{
		textResponse(`{"claims": [{"property_name": "Height", "value": "1270 mm", "confidence_percent": 90, "source_indices": [0]}]}`),
	}}
	e := newTestEngine(ai, sink)

	claims, err := e.ExtractBatch(context.Background(), testInput())
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "1270 mm", claims[0].Value)

	// Exactly one outbound call, accounted once.
	assert.Len(t, ai.requests, 1)
	require.Len(t, sink.records, 1)
	assert.Equal(t, model.CallTypeExtraction, sink.records[0].APICallType)
	assert.Equal(t, int64(1000), sink.records[0].InputTokens)
}

func TestExtractBatch_NoContent(t *testing.T) {
	e := newTestEngine(&fakeAI{}, nil)

	_, err := e.ExtractBatch(context.Background(), BatchInput{ProductName: "Acme Pump"})
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrNoContent, bErr.Kind)
}

func TestExtractBatch_MalformedRetriesOnceWithStricterPrompt(t *testing.T) {
	sink := &usageSink{}
	ai := &fakeAI{responses: []*anthropic.MessageResponse{
		textResponse(`Sure! The height is 1270 mm.`),
		textResponse(`{"claims": [{"property_name": "Height", "value": "1270 mm", "confidence_percent": 85, "source_indices": [0]}]}`),
	}}
	e := newTestEngine(ai, sink)

	claims, err := e.ExtractBatch(context.Background(), testInput())
	require.NoError(t, err)
	assert.Len(t, claims, 1)

	require.Len(t, ai.requests, 2)
	assert.NotContains(t, ai.requests[0].Messages[0].Content, "could not be parsed")
	assert.Contains(t, ai.requests[1].Messages[0].Content, "could not be parsed")

	// Both calls are accounted, the second as a retry.
	require.Len(t, sink.records, 2)
	assert.Equal(t, model.CallTypeExtraction, sink.records[0].APICallType)
	assert.Equal(t, model.CallTypeExtractionRetry, sink.records[1].APICallType)
}

func TestExtractBatch_MalformedTwiceFails(t *testing.T) {
	ai := &fakeAI{responses: []*anthropic.MessageResponse{
		textResponse(`not json`),
		textResponse(`still not json`),
	}}
	e := newTestEngine(ai, nil)

	_, err := e.ExtractBatch(context.Background(), testInput())
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrMalformed, bErr.Kind)
	assert.Len(t, ai.requests, 2, "exactly one re-prompt, never more")
}

func TestExtractBatch_RateLimitRetriedUpToBound(t *testing.T) {
	rateLimited := resilience.NewTransientError(eris.New("anthropic: create message: 429 rate limited"), 429)
	ai := &fakeAI{errs: []error{rateLimited, rateLimited, rateLimited}}
	e := NewEngine(ai,
		cost.NewAccountant(cost.DefaultTable(), nil),
		config.ExtractConfig{ContextBudgetChars: 100000, MaxRetries: 3},
		config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096},
	)

	_, err := e.ExtractBatch(context.Background(), testInput())
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrRateLimited, bErr.Kind)
	assert.Len(t, ai.requests, 3, "rate-limited call is attempted MaxRetries times")
}

func TestExtractBatch_TransientErrorThenSuccess(t *testing.T) {
	sink := &usageSink{}
	ai := &fakeAI{
		errs: []error{resilience.NewTransientError(eris.New("anthropic: create message: 529 overloaded"), 529), nil},
		responses: []*anthropic.MessageResponse{
			nil,
			textResponse(`{"claims": [{"property_name": "Height", "value": "1270 mm", "confidence_percent": 90, "source_indices": [0]}]}`),
		},
	}
	e := NewEngine(ai,
		cost.NewAccountant(cost.DefaultTable(), sink),
		config.ExtractConfig{ContextBudgetChars: 100000, MaxRetries: 3},
		config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096},
	)

	claims, err := e.ExtractBatch(context.Background(), testInput())
	require.NoError(t, err)
	assert.Len(t, claims, 1)
	assert.Len(t, ai.requests, 2)
	// Only the successful call is accounted; the failed attempt consumed
	// no reported tokens.
	assert.Len(t, sink.records, 1)
}

func TestExtractBatch_RateLimitClassified(t *testing.T) {
	ai := &fakeAI{errs: []error{eris.New("anthropic: create message: 429 Too Many Requests")}}
	e := newTestEngine(ai, nil)

	_, err := e.ExtractBatch(context.Background(), testInput())
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrRateLimited, bErr.Kind)
}

func TestExtractBatch_ContextOverflowClassified(t *testing.T) {
	ai := &fakeAI{errs: []error{eris.New("anthropic: create message: prompt is too long, context window exceeded")}}
	e := newTestEngine(ai, nil)

	_, err := e.ExtractBatch(context.Background(), testInput())
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrContextOverflow, bErr.Kind)
}

func TestExtractBatch_ProviderErrorHasReason(t *testing.T) {
	ai := &fakeAI{errs: []error{eris.New("anthropic: create message: internal error")}}
	e := newTestEngine(ai, nil)

	_, err := e.ExtractBatch(context.Background(), testInput())
	var bErr *Error
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, ErrProvider, bErr.Kind)
	assert.NotEmpty(t, bErr.Reason)
}
