package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/prodex-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, narrowed so tests can
// substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS extraction_results (
	job_id         TEXT PRIMARY KEY,
	article_number TEXT NOT NULL DEFAULT '',
	product_name   TEXT NOT NULL,
	failed         BOOLEAN NOT NULL DEFAULT false,
	result         JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS token_usage (
	api_call_id   TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	model_name    TEXT NOT NULL,
	input_tokens  BIGINT NOT NULL,
	output_tokens BIGINT NOT NULL,
	input_cost    NUMERIC NOT NULL,
	output_cost   NUMERIC NOT NULL,
	total_cost    NUMERIC NOT NULL,
	api_call_type TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_article ON extraction_results(article_number);
CREATE INDEX IF NOT EXISTS idx_results_failed ON extraction_results(failed);
CREATE INDEX IF NOT EXISTS idx_usage_user ON token_usage(user_id);
CREATE INDEX IF NOT EXISTS idx_usage_model ON token_usage(model_name);
CREATE INDEX IF NOT EXISTS idx_usage_created ON token_usage(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *model.ExtractionBatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO extraction_results (job_id, article_number, product_name, failed, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (job_id) DO UPDATE SET
		   article_number = $2, product_name = $3, failed = $4, result = $5`,
		result.JobID, result.ArticleNumber, result.ProductName,
		result.Failed, resultJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save result %s", result.JobID)
}

func (s *PostgresStore) GetResult(ctx context.Context, jobID string) (*model.ExtractionBatchResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM extraction_results WHERE job_id = $1`,
		jobID,
	).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get result %s", jobID)
	}

	var r model.ExtractionBatchResult
	if err := json.Unmarshal(resultJSON, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.ExtractionBatchResult, error) {
	query := `SELECT result FROM extraction_results WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ArticleNumber != "" {
		query += fmt.Sprintf(` AND article_number = $%d`, argIdx)
		args = append(args, filter.ArticleNumber)
		argIdx++
	}
	if filter.FailedOnly {
		query += ` AND failed = true`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.ExtractionBatchResult
	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var r model.ExtractionBatchResult
		if err := json.Unmarshal(resultJSON, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) RecordUsage(ctx context.Context, rec model.TokenUsageRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO token_usage
		 (api_call_id, user_id, model_name, input_tokens, output_tokens, input_cost, output_cost, total_cost, api_call_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.APICallID, rec.UserID, rec.ModelName,
		rec.InputTokens, rec.OutputTokens,
		rec.InputCost.String(), rec.OutputCost.String(), rec.TotalCost.String(),
		string(rec.APICallType), rec.Timestamp.UTC(),
	)
	return eris.Wrapf(err, "postgres: record usage %s", rec.APICallID)
}

func (s *PostgresStore) ListUsage(ctx context.Context, filter UsageFilter) ([]model.TokenUsageRecord, error) {
	query := `SELECT api_call_id, user_id, model_name, input_tokens, output_tokens,
	                 input_cost::text, output_cost::text, total_cost::text, api_call_type, created_at
	          FROM token_usage WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.ModelName != "" {
		query += fmt.Sprintf(` AND model_name = $%d`, argIdx)
		args = append(args, filter.ModelName)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list usage")
	}
	defer rows.Close()

	var records []model.TokenUsageRecord
	for rows.Next() {
		var rec model.TokenUsageRecord
		var inputCost, outputCost, totalCost, callType string
		if err := rows.Scan(&rec.APICallID, &rec.UserID, &rec.ModelName,
			&rec.InputTokens, &rec.OutputTokens,
			&inputCost, &outputCost, &totalCost, &callType, &rec.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan usage")
		}
		if rec.InputCost, err = decimal.NewFromString(inputCost); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse input cost %q", inputCost)
		}
		if rec.OutputCost, err = decimal.NewFromString(outputCost); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse output cost %q", outputCost)
		}
		if rec.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse total cost %q", totalCost)
		}
		rec.APICallType = model.APICallType(callType)
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list usage iterate")
}
