package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of scrape health.
type MetricsSnapshot struct {
	// Runs within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsFailed    int     `json:"runs_failed"`
	FailRate      float64 `json:"fail_rate"`
	RowsExported  int     `json:"rows_exported"`

	// Failed runs at the head of the log, newest first, regardless of window.
	ConsecutiveFailures int `json:"consecutive_failures"`

	LastCompletedAt time.Time `json:"last_completed_at,omitzero"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ScrapeLister is the store method the collector needs.
type ScrapeLister interface {
	ListScrapes(ctx context.Context, filter store.LogFilter) ([]model.ScrapeLog, error)
}

// collectLimit caps how many recent logs one collection reads.
const collectLimit = 500

// Collector gathers metrics from the scrape log.
type Collector struct {
	logs ScrapeLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(logs ScrapeLister) *Collector {
	return &Collector{logs: logs, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Newest first.
	logs, err := c.logs.ListScrapes(ctx, store.LogFilter{Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list scrape logs")
	}

	streak := true
	for _, l := range logs {
		if streak {
			if l.Status == model.RunStatusFailed {
				snap.ConsecutiveFailures++
			} else {
				streak = false
			}
		}
		if l.Status == model.RunStatusCompleted && snap.LastCompletedAt.IsZero() {
			snap.LastCompletedAt = l.CreatedAt
		}

		if l.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch l.Status {
		case model.RunStatusCompleted:
			snap.RunsCompleted++
			snap.RowsExported += l.DataCount
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
	}

	if snap.RunsTotal > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}
	return snap, nil
}
