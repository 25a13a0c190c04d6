package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealmachine-cli/internal/model"
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

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scrape_logs (
	id         TEXT PRIMARY KEY,
	data_count INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scrape_logs_status ON scrape_logs(status);
CREATE INDEX IF NOT EXISTS idx_scrape_logs_created_at ON scrape_logs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordScrape(ctx context.Context, summary model.RunSummary) (*model.ScrapeLog, error) {
	if err := validateSummary(summary); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_logs (id, data_count, status, created_at) VALUES (?, ?, ?, ?)`,
		id, summary.DataCount, string(summary.Status), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert scrape log")
	}

	return &model.ScrapeLog{
		ID:        id,
		DataCount: summary.DataCount,
		Status:    summary.Status,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ListScrapes(ctx context.Context, filter LogFilter) ([]model.ScrapeLog, error) {
	query := `SELECT id, data_count, status, created_at FROM scrape_logs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scrape logs")
	}
	defer rows.Close()

	var logs []model.ScrapeLog
	for rows.Next() {
		var l model.ScrapeLog
		var status string
		if err := rows.Scan(&l.ID, &l.DataCount, &status, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scrape log")
		}
		l.Status = model.RunStatus(status)
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list scrape logs iterate")
}
