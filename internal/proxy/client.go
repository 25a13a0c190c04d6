// Package proxy fetches lead pages through the dealmachine-cli server's
// /api/leads endpoint instead of calling DealMachine directly.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// LeadsPath is the proxy route serving lead pages.
const LeadsPath = "/api/leads"

// Request is the body accepted by the proxy endpoint.
type Request struct {
	Token    string `json:"token"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// ErrorBody is the error envelope returned by the proxy endpoint.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusError is returned when the proxy answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Backend API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Backend API error %d", e.StatusCode)
}

// HTTPStatus returns the proxy's status code.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// Client is a scraper.PageSource backed by the proxy endpoint.
type Client struct {
	baseURL string
	auth    string
	http    *http.Client
}

// Option configures the proxy client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a proxy client for the server at baseURL. auth is sent
// as a bearer token on every request.
func NewClient(baseURL, auth string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListLeads issues one request for the page at cursor.
func (c *Client) ListLeads(ctx context.Context, token string, cursor model.PageCursor) (*model.LeadPage, error) {
	payload, err := json.Marshal(Request{Token: token, Page: cursor.PageIndex, PageSize: cursor.PageSize})
	if err != nil {
		return nil, eris.Wrap(err, "proxy: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LeadsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "proxy: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.auth != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "proxy: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "proxy: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope ErrorBody
		_ = json.Unmarshal(body, &envelope)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	var page model.LeadPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, "proxy: unmarshal response")
	}
	return &page, nil
}
