// Package store persists extraction results and token usage records behind
// a driver-agnostic interface with SQLite and Postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
)

// ResultFilter specifies criteria for listing extraction results.
type ResultFilter struct {
	ArticleNumber string `json:"article_number,omitempty"`
	FailedOnly    bool   `json:"failed_only,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}

// UsageFilter specifies criteria for listing token usage records.
type UsageFilter struct {
	UserID    string    `json:"user_id,omitempty"`
	ModelName string    `json:"model_name,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the extraction pipeline.
// Usage records are append-only; RecordUsage satisfies cost.Recorder.
type Store interface {
	// Results
	SaveResult(ctx context.Context, result *model.ExtractionBatchResult) error
	GetResult(ctx context.Context, jobID string) (*model.ExtractionBatchResult, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]model.ExtractionBatchResult, error)

	// Usage
	RecordUsage(ctx context.Context, rec model.TokenUsageRecord) error
	ListUsage(ctx context.Context, filter UsageFilter) ([]model.TokenUsageRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the Store named by cfg.Driver and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
