package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pool
}

// NewPostgres creates a PostgresStore with a small connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: p}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scrape_logs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	data_count INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scrape_logs_status ON scrape_logs(status);
CREATE INDEX IF NOT EXISTS idx_scrape_logs_created_at ON scrape_logs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordScrape(ctx context.Context, summary model.RunSummary) (*model.ScrapeLog, error) {
	if err := validateSummary(summary); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_logs (id, data_count, status, created_at) VALUES ($1, $2, $3, $4)`,
		id, summary.DataCount, string(summary.Status), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert scrape log")
	}

	return &model.ScrapeLog{
		ID:        id,
		DataCount: summary.DataCount,
		Status:    summary.Status,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) ListScrapes(ctx context.Context, filter LogFilter) ([]model.ScrapeLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, data_count, status, created_at FROM scrape_logs
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scrape logs")
	}
	defer rows.Close()

	var logs []model.ScrapeLog
	for rows.Next() {
		var l model.ScrapeLog
		var status string
		if err := rows.Scan(&l.ID, &l.DataCount, &status, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scrape log")
		}
		l.Status = model.RunStatus(status)
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list scrape logs iterate")
}
