package job

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prodex-cli/internal/model"
)

// BulkSummary aggregates the outcome of a bulk run.
type BulkSummary struct {
	Total     int                           `json:"total"`
	Succeeded int                           `json:"succeeded"`
	Failed    int                           `json:"failed"`
	Results   []model.ExtractionBatchResult `json:"results"`
}

// RunBulk processes every product with bounded parallelism. One product's
// failure never aborts the others; failed products appear in the summary
// with their reason. Cancellation stops scheduling new products and lets
// in-flight ones wind down cooperatively.
func (r *Runner) RunBulk(ctx context.Context, products []Product, props []model.PropertyDefinition, userID string) *BulkSummary {
	summary := &BulkSummary{
		Total:   len(products),
		Results: make([]model.ExtractionBatchResult, len(products)),
	}

	limit := r.cfg.Batch.MaxConcurrentProducts
	if limit <= 0 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	for i, p := range products {
		g.Go(func() error {
			if gCtx.Err() != nil {
				mu.Lock()
				summary.Results[i] = model.ExtractionBatchResult{
					ProductName:   p.ProductName,
					ArticleNumber: p.ArticleNumber,
					Failed:        true,
					FailureReason: "cancelled before start",
				}
				summary.Failed++
				mu.Unlock()
				return nil
			}

			res, err := r.Run(gCtx, Request{
				ArticleNumber: p.ArticleNumber,
				ProductName:   p.ProductName,
				Properties:    props,
				UserID:        userID,
			})

			mu.Lock()
			summary.Results[i] = *res
			if err != nil {
				summary.Failed++
			} else {
				summary.Succeeded++
			}
			mu.Unlock()

			// Per-product isolation: errors are recorded, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("job: bulk run complete",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary
}
