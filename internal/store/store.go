// Package store persists scrape log entries.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// LogFilter specifies criteria for listing scrape logs.
type LogFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for scrape logs.
type Store interface {
	RecordScrape(ctx context.Context, summary model.RunSummary) (*model.ScrapeLog, error)
	ListScrapes(ctx context.Context, filter LogFilter) ([]model.ScrapeLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// Open connects to the configured backend. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func validateSummary(summary model.RunSummary) error {
	if !summary.Status.Valid() {
		return eris.Errorf("store: invalid status %q", summary.Status)
	}
	if summary.DataCount < 0 {
		return eris.Errorf("store: negative data count %d", summary.DataCount)
	}
	return nil
}
