package job

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/extract"
	"github.com/sells-group/prodex-cli/internal/fetch"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/reconcile"
	"github.com/sells-group/prodex-cli/internal/scorer"
	"github.com/sells-group/prodex-cli/internal/store"
	"github.com/sells-group/prodex-cli/pkg/websearch"
)

type fakeSearch struct {
	resp *websearch.SearchResponse
	err  error
}

func (f *fakeSearch) Search(_ context.Context, _ websearch.SearchRequest) (*websearch.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeDocs struct {
	results []model.FetchResult
}

func (f *fakeDocs) Collect(_ context.Context, _, _ string, _ []string) []model.FetchResult {
	return f.results
}

type fakeEngine struct {
	mu     sync.Mutex
	claims []model.ExtractedPropertyClaim
	err    error
	inputs []extract.BatchInput
}

func (f *fakeEngine) ExtractBatch(_ context.Context, in extract.BatchInput) ([]model.ExtractedPropertyClaim, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

// memStore keeps saved results in memory; the rest of the interface is inert.
type memStore struct {
	mu    sync.Mutex
	saved map[string]*model.ExtractionBatchResult
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*model.ExtractionBatchResult{}}
}

func (m *memStore) SaveResult(_ context.Context, r *model.ExtractionBatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[r.JobID] = r
	return nil
}

func (m *memStore) GetResult(_ context.Context, jobID string) (*model.ExtractionBatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[jobID], nil
}

func (m *memStore) ListResults(_ context.Context, _ store.ResultFilter) ([]model.ExtractionBatchResult, error) {
	return nil, nil
}

func (m *memStore) RecordUsage(_ context.Context, _ model.TokenUsageRecord) error { return nil }

func (m *memStore) ListUsage(_ context.Context, _ store.UsageFilter) ([]model.TokenUsageRecord, error) {
	return nil, nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{MaxResults: 10},
		Scorer: config.ScorerConfig{MaxResults: 10},
		Batch:  config.BatchConfig{MaxConcurrentProducts: 2},
	}
}

func docContent(url, text string, ok bool) model.FetchResult {
	return model.FetchResult{
		Source:        model.Source{URL: url, Title: url},
		TierUsed:      model.TierPDF,
		RawContent:    text,
		ContentLength: len(text),
		Success:       ok,
	}
}

// newTestRunner wires a runner whose only content arrives through the
// document collector, so no network is involved.
func newTestRunner(cfg *config.Config, st store.Store, search websearch.Client, docs DocumentCollector, engine Extractor) *Runner {
	return NewRunner(cfg, st,
		search,
		scorer.New(cfg.Scorer),
		fetch.NewFetcher(cfg.Fetch, cfg.Render, nil),
		docs,
		engine,
		reconcile.New(),
	)
}

func heightClaim() []model.ExtractedPropertyClaim {
	return []model.ExtractedPropertyClaim{
		{PropertyName: "Height", Value: "1270 mm", ConfidencePercent: 90, SourceIndices: []int{0}},
	}
}

func heightRequest() Request {
	return Request{
		ArticleNumber: "P-100",
		ProductName:   "Acme Pump",
		Properties:    []model.PropertyDefinition{{Name: "Height", OrderIndex: 0}},
		UserID:        "user-1",
	}
}

func TestRun_Success(t *testing.T) {
	st := newMemStore()
	engine := &fakeEngine{claims: heightClaim()}
	docs := &fakeDocs{results: []model.FetchResult{
		docContent("file:///docs/p-100.pdf", "Height: 1270 mm", true),
		docContent("file:///docs/broken.pdf", "", false),
	}}
	r := newTestRunner(testConfig(), st, nil, docs, engine)

	res, err := r.Run(context.Background(), heightRequest())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, 2, res.SourcesAttempted)
	assert.Equal(t, 1, res.SourcesSucceeded)
	require.Len(t, res.SourceOutcomes, 2)
	assert.True(t, res.SourceOutcomes[0].Success)
	assert.False(t, res.SourceOutcomes[1].Success)

	require.Len(t, res.ReconciledProperties, 1)
	assert.Equal(t, "1270 mm", res.ReconciledProperties[0].Value)
	assert.True(t, res.ReconciledProperties[0].Found)

	// Only successful fetches enter the batch.
	require.Len(t, engine.inputs, 1)
	assert.Len(t, engine.inputs[0].Contents, 1)
	assert.Equal(t, "user-1", engine.inputs[0].UserID)

	saved, _ := st.GetResult(context.Background(), res.JobID)
	require.NotNil(t, saved, "result is persisted")
}

func TestRun_PreAssignedJobID(t *testing.T) {
	engine := &fakeEngine{claims: heightClaim()}
	docs := &fakeDocs{results: []model.FetchResult{docContent("file:///a.pdf", "Height: 1270 mm", true)}}
	r := newTestRunner(testConfig(), nil, nil, docs, engine)

	req := heightRequest()
	req.JobID = "webhook-assigned-id"
	res, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "webhook-assigned-id", res.JobID)
}

func TestRun_ExtractionFailureIsRecordedAndPersisted(t *testing.T) {
	st := newMemStore()
	engine := &fakeEngine{err: eris.New("extract: no usable content")}
	r := newTestRunner(testConfig(), st, nil, &fakeDocs{}, engine)

	res, err := r.Run(context.Background(), heightRequest())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Failed)
	assert.Contains(t, res.FailureReason, "no usable content")

	saved, _ := st.GetResult(context.Background(), res.JobID)
	require.NotNil(t, saved)
	assert.True(t, saved.Failed, "failed results are persisted too")
}

func TestRun_SearchFailureStillRunsWithDocuments(t *testing.T) {
	engine := &fakeEngine{claims: heightClaim()}
	docs := &fakeDocs{results: []model.FetchResult{docContent("file:///a.pdf", "Height: 1270 mm", true)}}
	search := &fakeSearch{err: eris.New("websearch: 503")}
	r := newTestRunner(testConfig(), nil, search, docs, engine)

	res, err := r.Run(context.Background(), heightRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, res.SourcesSucceeded)
}

func TestRunBulk_Isolation(t *testing.T) {
	// Every product fails at extraction; the bulk run still completes and
	// reports each failure individually.
	engine := &fakeEngine{err: eris.New("extract: provider error")}
	r := newTestRunner(testConfig(), nil, nil, &fakeDocs{}, engine)

	products := []Product{
		{ProductName: "Pump A", ArticleNumber: "A-1"},
		{ProductName: "Pump B", ArticleNumber: "B-2"},
		{ProductName: "Pump C", ArticleNumber: "C-3"},
	}
	summary := r.RunBulk(context.Background(), products, []model.PropertyDefinition{{Name: "Height"}}, "")

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 3, summary.Failed)
	require.Len(t, summary.Results, 3)
	// Results stay in input order regardless of completion order.
	assert.Equal(t, "Pump A", summary.Results[0].ProductName)
	assert.Equal(t, "Pump C", summary.Results[2].ProductName)
	for _, res := range summary.Results {
		assert.True(t, res.Failed)
	}
}

func TestRunBulk_MixedOutcomes(t *testing.T) {
	engine := &fakeEngine{claims: heightClaim()}
	docs := &fakeDocs{results: []model.FetchResult{docContent("file:///a.pdf", "Height: 1270 mm", true)}}
	r := newTestRunner(testConfig(), nil, nil, docs, engine)

	products := []Product{{ProductName: "Pump A"}, {ProductName: "Pump B"}}
	summary := r.RunBulk(context.Background(), products, []model.PropertyDefinition{{Name: "Height"}}, "user-1")

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunBulk_CancelledContext(t *testing.T) {
	engine := &fakeEngine{claims: heightClaim()}
	r := newTestRunner(testConfig(), nil, nil, &fakeDocs{}, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	products := []Product{{ProductName: "Pump A"}, {ProductName: "Pump B"}}
	summary := r.RunBulk(ctx, products, nil, "")

	assert.Equal(t, 2, summary.Total)
	for _, res := range summary.Results {
		assert.True(t, res.Failed)
	}
}
