// Package audit summarizes finished scrape runs and delivers the summary
// to the scrape log.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// Summarize maps a run outcome to its audit summary. Only a success carries
// a non-zero count.
func Summarize(out model.RunOutcome) model.RunSummary {
	switch out.Kind {
	case model.OutcomeSuccess:
		return model.RunSummary{DataCount: out.RowCount, Status: model.RunStatusCompleted}
	case model.OutcomeEmpty:
		return model.RunSummary{DataCount: 0, Status: model.RunStatusCompleted}
	default:
		return model.RunSummary{DataCount: 0, Status: model.RunStatusFailed}
	}
}

// Invocation builds the result handed back to whoever started the run.
func Invocation(out model.RunOutcome) model.InvocationResult {
	res := model.InvocationResult{Logging: Summarize(out)}
	switch out.Kind {
	case model.OutcomeSuccess:
		res.Success = true
		res.Count = out.RowCount
	case model.OutcomeEmpty:
		res.Success = true
	default:
		res.Error = out.Message
		if res.Error == "" {
			res.Error = string(out.ErrorKind)
		}
	}
	return res
}

// Sender delivers a summary to the audit collaborator.
type Sender interface {
	Send(ctx context.Context, summary model.RunSummary) error
}

// Reporter delivers run summaries without letting delivery problems leak
// into the run result.
type Reporter struct {
	sender  Sender
	timeout time.Duration
}

// NewReporter creates a Reporter. A nil sender makes Report a no-op apart
// from logging.
func NewReporter(sender Sender, timeout time.Duration) *Reporter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reporter{sender: sender, timeout: timeout}
}

// Report summarizes out and sends it. Errors and panics from the sender are
// logged and swallowed. The summary is returned regardless.
func (r *Reporter) Report(ctx context.Context, out model.RunOutcome) (summary model.RunSummary) {
	summary = Summarize(out)
	if r == nil || r.sender == nil {
		zap.L().Debug("audit: no sender configured", zap.String("status", string(summary.Status)))
		return summary
	}

	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("audit: sender panicked", zap.Any("panic", p))
		}
	}()

	// Delivery gets its own deadline so a cancelled run still gets logged.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sender.Send(sendCtx, summary); err != nil {
		zap.L().Warn("audit: delivery failed",
			zap.Int("data_count", summary.DataCount),
			zap.String("status", string(summary.Status)),
			zap.Error(err),
		)
		return summary
	}

	zap.L().Info("audit: run logged",
		zap.Int("data_count", summary.DataCount),
		zap.String("status", string(summary.Status)),
	)
	return summary
}
