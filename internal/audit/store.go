package audit

import (
	"context"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// Recorder persists scrape log entries.
type Recorder interface {
	RecordScrape(ctx context.Context, summary model.RunSummary) (*model.ScrapeLog, error)
}

// RecorderSender delivers summaries straight into a Recorder, for runs
// executed inside the server process.
type RecorderSender struct {
	Recorder Recorder
}

// Send records the summary.
func (s RecorderSender) Send(ctx context.Context, summary model.RunSummary) error {
	_, err := s.Recorder.RecordScrape(ctx, summary)
	return err
}
