// Package job orchestrates the full extraction flow for one product: search,
// score, fetch, document merge, batched extraction, reconciliation, and
// persistence.
package job

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/extract"
	"github.com/sells-group/prodex-cli/internal/fetch"
	"github.com/sells-group/prodex-cli/internal/model"
	"github.com/sells-group/prodex-cli/internal/reconcile"
	"github.com/sells-group/prodex-cli/internal/scorer"
	"github.com/sells-group/prodex-cli/internal/store"
	"github.com/sells-group/prodex-cli/pkg/websearch"
)

// Request identifies one product to extract and the properties wanted.
// JobID may be pre-assigned by the caller (the webhook server hands it out
// before running asynchronously); when empty a fresh one is generated.
type Request struct {
	JobID         string                     `json:"job_id,omitempty"`
	ArticleNumber string                     `json:"article_number,omitempty"`
	ProductName   string                     `json:"product_name"`
	Properties    []model.PropertyDefinition `json:"properties"`
	PDFUploads    []string                   `json:"pdf_uploads,omitempty"`
	UserID        string                     `json:"user_id,omitempty"`
}

// Extractor is the batched extraction surface the runner depends on.
type Extractor interface {
	ExtractBatch(ctx context.Context, in extract.BatchInput) ([]model.ExtractedPropertyClaim, error)
}

// DocumentCollector gathers PDF-derived content-pool entries.
type DocumentCollector interface {
	Collect(ctx context.Context, articleNumber, productName string, uploads []string) []model.FetchResult
}

// Runner wires the pipeline stages together for single-product runs.
type Runner struct {
	cfg        *config.Config
	store      store.Store // may be nil; results are then only returned
	search     websearch.Client
	scorer     *scorer.Scorer
	fetcher    *fetch.Fetcher
	documents  DocumentCollector // may be nil when no PDF sources are configured
	engine     Extractor
	reconciler *reconcile.Reconciler
}

// NewRunner creates a Runner with all stage dependencies.
func NewRunner(
	cfg *config.Config,
	st store.Store,
	search websearch.Client,
	sc *scorer.Scorer,
	fetcher *fetch.Fetcher,
	documents DocumentCollector,
	engine Extractor,
	reconciler *reconcile.Reconciler,
) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      st,
		search:     search,
		scorer:     sc,
		fetcher:    fetcher,
		documents:  documents,
		engine:     engine,
		reconciler: reconciler,
	}
}

// Run executes the full flow for one product. The returned result is always
// populated; a failed batch carries Failed plus an explicit reason instead of
// empty values. The result is persisted best-effort before returning.
func (r *Runner) Run(ctx context.Context, req Request) (*model.ExtractionBatchResult, error) {
	start := time.Now()
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	log := zap.L().With(
		zap.String("job_id", jobID),
		zap.String("product", req.ProductName),
		zap.String("article_number", req.ArticleNumber),
	)
	log.Info("job: starting extraction")

	result := &model.ExtractionBatchResult{
		JobID:         jobID,
		ArticleNumber: req.ArticleNumber,
		ProductName:   req.ProductName,
	}

	// Search is best-effort: a provider failure leaves the web source list
	// empty but PDF sources can still carry the batch.
	hits := r.searchHits(ctx, req)
	sources := r.scorer.ValidateAndScore(hits, req.ArticleNumber, req.ProductName)
	log.Info("job: sources selected",
		zap.Int("hits", len(hits)),
		zap.Int("selected", len(sources)),
	)

	fetched := r.fetcher.FetchAll(ctx, sources)

	if r.documents != nil {
		docs := r.documents.Collect(ctx, req.ArticleNumber, req.ProductName, req.PDFUploads)
		fetched = append(fetched, docs...)
	}

	var contents []model.FetchResult
	for _, fr := range fetched {
		result.SourceOutcomes = append(result.SourceOutcomes, model.SourceOutcome{
			URL:        fr.Source.URL,
			Title:      fr.Source.Title,
			Tier:       fr.TierUsed,
			Success:    fr.Success,
			ErrorKind:  fr.ErrorKind,
			DurationMs: fr.DurationMs,
		})
		if fr.Success {
			contents = append(contents, fr)
		}
	}
	result.SourcesAttempted = len(fetched)
	result.SourcesSucceeded = len(contents)

	claims, err := r.engine.ExtractBatch(ctx, extract.BatchInput{
		ArticleNumber: req.ArticleNumber,
		ProductName:   req.ProductName,
		Properties:    req.Properties,
		Contents:      contents,
		UserID:        req.UserID,
	})
	if err != nil {
		result.Failed = true
		result.FailureReason = err.Error()
		result.ProcessingDurationMs = time.Since(start).Milliseconds()
		log.Error("job: extraction failed", zap.Error(err))
		r.persist(ctx, result, log)
		return result, err
	}

	result.ReconciledProperties = r.reconciler.Reconcile(req.Properties, claims, contents)
	result.ProcessingDurationMs = time.Since(start).Milliseconds()

	found := 0
	for _, p := range result.ReconciledProperties {
		if p.Found {
			found++
		}
	}
	log.Info("job: extraction complete",
		zap.Int("sources_attempted", result.SourcesAttempted),
		zap.Int("sources_succeeded", result.SourcesSucceeded),
		zap.Int("properties_found", found),
		zap.Int("properties_total", len(req.Properties)),
		zap.Int64("duration_ms", result.ProcessingDurationMs),
	)

	r.persist(ctx, result, log)
	return result, nil
}

func (r *Runner) searchHits(ctx context.Context, req Request) []model.SearchHit {
	if r.search == nil {
		return nil
	}

	query := strings.TrimSpace(req.ProductName + " " + req.ArticleNumber)
	resp, err := r.search.Search(ctx, websearch.SearchRequest{
		Query:      query,
		MaxResults: r.cfg.Search.MaxResults,
	})
	if err != nil {
		zap.L().Warn("job: search failed, continuing without web sources",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	hits := make([]model.SearchHit, 0, len(resp.Results))
	for _, res := range resp.Results {
		hits = append(hits, model.SearchHit{
			URL:     res.URL,
			Title:   res.Title,
			Snippet: res.Snippet,
		})
	}
	return hits
}

func (r *Runner) persist(ctx context.Context, result *model.ExtractionBatchResult, log *zap.Logger) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveResult(ctx, result); err != nil {
		log.Warn("job: failed to persist result", zap.Error(err))
	}
}
