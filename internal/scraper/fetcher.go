package scraper

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// PageSource performs one round-trip for one page of leads. Implementations
// must not retry.
type PageSource interface {
	ListLeads(ctx context.Context, token string, cursor model.PageCursor) (*model.LeadPage, error)
}

// HTTPStatusError is implemented by source errors that carry a remote
// HTTP status.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// PageKind classifies a fetched page.
type PageKind int

const (
	PageRecords PageKind = iota
	PageEmpty
	PageFailed
)

func (k PageKind) String() string {
	switch k {
	case PageRecords:
		return "page"
	case PageEmpty:
		return "empty"
	default:
		return "error"
	}
}

// PageResult is the classified response for one cursor.
type PageResult struct {
	Kind    PageKind
	Cursor  model.PageCursor
	Records []model.LeadRecord

	// Set when Kind == PageFailed.
	ErrorKind  model.ErrorKind
	Message    string
	StatusCode int
}

// Fetcher wraps a PageSource and classifies its responses.
type Fetcher struct {
	source PageSource
}

// NewFetcher creates a Fetcher over the given source.
func NewFetcher(source PageSource) *Fetcher {
	return &Fetcher{source: source}
}

// Fetch retrieves and classifies one page.
func (f *Fetcher) Fetch(ctx context.Context, credential string, cursor model.PageCursor) PageResult {
	page, err := f.source.ListLeads(ctx, credential, cursor)
	if err != nil {
		res := classifyError(err)
		res.Cursor = cursor
		pagesFetched.WithLabelValues(res.Kind.String()).Inc()
		zap.L().Warn("scraper: page fetch failed",
			zap.Int("page", cursor.PageIndex),
			zap.String("error_kind", string(res.ErrorKind)),
			zap.Error(err),
		)
		return res
	}

	records := page.Records()
	if len(records) == 0 {
		pagesFetched.WithLabelValues(PageEmpty.String()).Inc()
		return PageResult{Kind: PageEmpty, Cursor: cursor}
	}

	pagesFetched.WithLabelValues(PageRecords.String()).Inc()
	return PageResult{Kind: PageRecords, Cursor: cursor, Records: records}
}

func classifyError(err error) PageResult {
	var se HTTPStatusError
	if errors.As(err, &se) {
		return PageResult{
			Kind:       PageFailed,
			ErrorKind:  model.ErrRemote,
			Message:    fmt.Sprintf("status %d", se.HTTPStatus()),
			StatusCode: se.HTTPStatus(),
		}
	}
	return PageResult{
		Kind:      PageFailed,
		ErrorKind: model.ErrInternal,
		Message:   err.Error(),
	}
}
