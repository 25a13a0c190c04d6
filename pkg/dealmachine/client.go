// Package dealmachine provides a client for the DealMachine lead listing API.
package dealmachine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// Client defines the DealMachine lead listing operations.
type Client interface {
	// ListLeads fetches one page of the "all leads" list and decodes it.
	ListLeads(ctx context.Context, token string, cursor model.PageCursor) (*model.LeadPage, error)
	// ListLeadsRaw fetches one page and returns the response body untouched.
	ListLeadsRaw(ctx context.Context, token string, cursor model.PageCursor) ([]byte, error)
}

// StatusError is returned when DealMachine answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("DealMachine API error %d", e.StatusCode)
}

// HTTPStatus returns the upstream status code.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// LeadsRequest is the request body for POST /v2/leads/. Every field except
// token, limit and begin is fixed: newest leads first, address search with
// an empty query, no filters, the full "all_leads" list.
type LeadsRequest struct {
	Token              string  `json:"token"`
	SortBy             string  `json:"sort_by"`
	Limit              int     `json:"limit"`
	Begin              int     `json:"begin"`
	Search             string  `json:"search"`
	SearchType         string  `json:"search_type"`
	Filters            any     `json:"filters"`
	OldFilters         any     `json:"old_filters"`
	ListID             string  `json:"list_id"`
	ListHistoryID      *string `json:"list_history_id"`
	GetUpdatedData     bool    `json:"get_updated_data"`
	PropertyFlags      string  `json:"property_flags"`
	PropertyFlagsAndOr string  `json:"property_flags_and_or"`
}

// NewLeadsRequest builds the fixed-shape request for one page.
func NewLeadsRequest(token string, cursor model.PageCursor) LeadsRequest {
	return LeadsRequest{
		Token:              token,
		SortBy:             "date_created_desc",
		Limit:              cursor.PageSize,
		Begin:              cursor.Offset(),
		Search:             "",
		SearchType:         "address",
		ListID:             "all_leads",
		GetUpdatedData:     false,
		PropertyFlags:      "",
		PropertyFlagsAndOr: "or",
	}
}

// Option configures the DealMachine client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new DealMachine client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.dealmachine.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListLeadsRaw issues exactly one request; it never retries.
func (c *httpClient) ListLeadsRaw(ctx context.Context, token string, cursor model.PageCursor) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "dealmachine: rate limit")
		}
	}

	payload, err := json.Marshal(NewLeadsRequest(token, cursor))
	if err != nil {
		return nil, eris.Wrap(err, "dealmachine: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/leads/", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "dealmachine: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dealmachine: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dealmachine: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *httpClient) ListLeads(ctx context.Context, token string, cursor model.PageCursor) (*model.LeadPage, error) {
	body, err := c.ListLeadsRaw(ctx, token, cursor)
	if err != nil {
		return nil, err
	}

	var page model.LeadPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "dealmachine: unmarshal response")
	}
	return &page, nil
}
