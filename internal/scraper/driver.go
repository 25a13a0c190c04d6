package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealmachine-cli/internal/export"
	"github.com/sells-group/dealmachine-cli/internal/model"
)

// Empty-result reasons.
const (
	ReasonNoLeads   = "no leads returned"
	ReasonNoMatches = "no wireless numbers matched"
)

// DefaultPageDelay is the pause between successive page fetches.
const DefaultPageDelay = 300 * time.Millisecond

// RunState is the mutable state of a single run. It is owned by exactly one
// run and never shared.
type RunState struct {
	seen    *Deduplicator
	rows    []model.OutputRow
	pages   int
	records int
}

// NewRunState returns an empty RunState.
func NewRunState() *RunState {
	return &RunState{seen: NewDeduplicator()}
}

// Rows returns the accepted rows in emission order.
func (s *RunState) Rows() []model.OutputRow {
	return s.rows
}

// Accepted returns the number of accepted rows.
func (s *RunState) Accepted() int {
	return len(s.rows)
}

// Seen returns the number of distinct numbers admitted. It always equals
// Accepted.
func (s *RunState) Seen() int {
	return s.seen.Len()
}

// ApplyPage filters every record and phone slot of a page and appends the
// admitted rows. Returns the number of rows accepted from this page.
func (s *RunState) ApplyPage(records []model.LeadRecord) int {
	accepted := 0
	s.records += len(records)
	for _, rec := range records {
		for _, entry := range rec.PhoneEntries {
			for _, row := range Candidates(rec, entry) {
				if !s.seen.Admit(row.PhoneNumber) {
					duplicatesSkipped.Inc()
					continue
				}
				s.rows = append(s.rows, row)
				accepted++
			}
		}
	}
	rowsAccepted.Add(float64(accepted))
	return accepted
}

// Options configures a Driver.
type Options struct {
	// PageSize is the number of leads requested per page. Default 100.
	PageSize int
	// PageDelay is the minimum spacing between page fetches. Zero disables it.
	PageDelay time.Duration
}

// Driver pages through the lead list until a short or empty page, a
// failure, or context cancellation.
type Driver struct {
	fetcher *Fetcher
	opts    Options
}

// NewDriver creates a Driver reading from source.
func NewDriver(source PageSource, opts Options) *Driver {
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultPageSize
	}
	if opts.PageDelay < 0 {
		opts.PageDelay = 0
	}
	return &Driver{fetcher: NewFetcher(source), opts: opts}
}

// Run executes one complete scrape with a fresh RunState. It never returns
// an error or panics: every failure is folded into the outcome.
func (d *Driver) Run(ctx context.Context, credential string) model.RunOutcome {
	return d.RunWith(ctx, credential, NewRunState())
}

// RunWith executes a scrape accumulating into the caller-owned state. A nil
// state is replaced with a fresh one.
func (d *Driver) RunWith(ctx context.Context, credential string, state *RunState) (out model.RunOutcome) {
	if state == nil {
		state = NewRunState()
	}
	start := time.Now()
	log := zap.L().With(zap.Int("page_size", d.opts.PageSize))

	defer func() {
		if r := recover(); r != nil {
			log.Error("scraper: run panicked", zap.Any("panic", r))
			out = model.Failure(model.ErrInternal, fmt.Sprintf("internal error: %v", r))
			out.PagesFetched = state.pages
		}
		runsTotal.WithLabelValues(string(out.Kind)).Inc()
		runDuration.Observe(time.Since(start).Seconds())
		log.Info("scraper: run finished",
			zap.String("outcome", string(out.Kind)),
			zap.Int("rows", out.RowCount),
			zap.Int("pages", out.PagesFetched),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	if strings.TrimSpace(credential) == "" {
		return model.Failure(model.ErrMissingCredential, "missing site token")
	}

	var limiter *rate.Limiter
	if d.opts.PageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(d.opts.PageDelay), 1)
	}

	cursor := model.FirstPage(d.opts.PageSize)
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				out = model.Failure(model.ErrInternal, err.Error())
				out.PagesFetched = state.pages
				return out
			}
		}

		res := d.fetcher.Fetch(ctx, credential, cursor)
		state.pages++

		switch res.Kind {
		case PageFailed:
			out = model.Failure(res.ErrorKind, res.Message)
			out.PagesFetched = state.pages
			return out
		case PageEmpty:
			return finish(state)
		}

		accepted := state.ApplyPage(res.Records)
		log.Debug("scraper: page processed",
			zap.Int("page", cursor.PageIndex),
			zap.Int("records", len(res.Records)),
			zap.Int("accepted", accepted),
			zap.Int("total", state.Accepted()),
		)

		if len(res.Records) < cursor.PageSize {
			return finish(state)
		}
		cursor = cursor.Next()
	}
}

// finish builds the terminal outcome once the listing is exhausted.
func finish(state *RunState) model.RunOutcome {
	var out model.RunOutcome
	switch {
	case state.records == 0:
		out = model.Empty(ReasonNoLeads)
	case state.Accepted() == 0:
		out = model.Empty(ReasonNoMatches)
	default:
		rows := state.Rows()
		out = model.Success(rows, export.EncodeRows(rows))
	}
	out.PagesFetched = state.pages
	return out
}
