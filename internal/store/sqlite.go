package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prodex-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Costs are stored as decimal strings, not REAL, so they round-trip exactly.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS extraction_results (
	job_id         TEXT PRIMARY KEY,
	article_number TEXT NOT NULL DEFAULT '',
	product_name   TEXT NOT NULL,
	failed         INTEGER NOT NULL DEFAULT 0,
	result         TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS token_usage (
	api_call_id   TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	model_name    TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	input_cost    TEXT NOT NULL,
	output_cost   TEXT NOT NULL,
	total_cost    TEXT NOT NULL,
	api_call_type TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_article ON extraction_results(article_number);
CREATE INDEX IF NOT EXISTS idx_results_failed ON extraction_results(failed);
CREATE INDEX IF NOT EXISTS idx_usage_user ON token_usage(user_id);
CREATE INDEX IF NOT EXISTS idx_usage_model ON token_usage(model_name);
CREATE INDEX IF NOT EXISTS idx_usage_created ON token_usage(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.ExtractionBatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_results (job_id, article_number, product_name, failed, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (job_id) DO UPDATE SET
		   article_number = excluded.article_number,
		   product_name = excluded.product_name,
		   failed = excluded.failed,
		   result = excluded.result`,
		result.JobID, result.ArticleNumber, result.ProductName,
		boolToInt(result.Failed), string(resultJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save result %s", result.JobID)
}

func (s *SQLiteStore) GetResult(ctx context.Context, jobID string) (*model.ExtractionBatchResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM extraction_results WHERE job_id = ?`,
		jobID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %s", jobID)
	}

	var r model.ExtractionBatchResult
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.ExtractionBatchResult, error) {
	query := `SELECT result FROM extraction_results WHERE 1=1`
	var args []any

	if filter.ArticleNumber != "" {
		query += ` AND article_number = ?`
		args = append(args, filter.ArticleNumber)
	}
	if filter.FailedOnly {
		query += ` AND failed = 1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.ExtractionBatchResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.ExtractionBatchResult
		if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) RecordUsage(ctx context.Context, rec model.TokenUsageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO token_usage
		 (api_call_id, user_id, model_name, input_tokens, output_tokens, input_cost, output_cost, total_cost, api_call_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.APICallID, rec.UserID, rec.ModelName,
		rec.InputTokens, rec.OutputTokens,
		rec.InputCost.String(), rec.OutputCost.String(), rec.TotalCost.String(),
		string(rec.APICallType), rec.Timestamp.UTC(),
	)
	return eris.Wrapf(err, "sqlite: record usage %s", rec.APICallID)
}

func (s *SQLiteStore) ListUsage(ctx context.Context, filter UsageFilter) ([]model.TokenUsageRecord, error) {
	query := `SELECT api_call_id, user_id, model_name, input_tokens, output_tokens,
	                 input_cost, output_cost, total_cost, api_call_type, created_at
	          FROM token_usage WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.ModelName != "" {
		query += ` AND model_name = ?`
		args = append(args, filter.ModelName)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list usage")
	}
	defer rows.Close()

	var records []model.TokenUsageRecord
	for rows.Next() {
		rec, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list usage iterate")
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUsage(row scannable) (*model.TokenUsageRecord, error) {
	var rec model.TokenUsageRecord
	var inputCost, outputCost, totalCost, callType string

	err := row.Scan(&rec.APICallID, &rec.UserID, &rec.ModelName,
		&rec.InputTokens, &rec.OutputTokens,
		&inputCost, &outputCost, &totalCost, &callType, &rec.Timestamp)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan usage")
	}

	if rec.InputCost, err = decimal.NewFromString(inputCost); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse input cost %q", inputCost)
	}
	if rec.OutputCost, err = decimal.NewFromString(outputCost); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse output cost %q", outputCost)
	}
	if rec.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse total cost %q", totalCost)
	}
	rec.APICallType = model.APICallType(callType)
	return &rec, nil
}
