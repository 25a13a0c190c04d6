package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/resilience"
)

// HTTPSender posts summaries to a scrape log endpoint such as
// https://host/api/scraping/log.
type HTTPSender struct {
	url   string
	auth  string
	http  *http.Client
	retry resilience.RetryConfig
}

// HTTPOption configures an HTTPSender.
type HTTPOption func(*HTTPSender)

// WithBearer sets the Authorization bearer token.
func WithBearer(token string) HTTPOption {
	return func(s *HTTPSender) {
		s.auth = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(s *HTTPSender) {
		s.http = hc
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) HTTPOption {
	return func(s *HTTPSender) {
		s.retry = cfg
	}
}

// NewHTTPSender creates a sender for the given endpoint URL.
func NewHTTPSender(url string, opts ...HTTPOption) *HTTPSender {
	s := &HTTPSender{
		url:   url,
		http:  &http.Client{Timeout: 10 * time.Second},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("audit.send")
	}
	return s
}

// Send posts the summary, retrying transient failures. The response body
// is discarded.
func (s *HTTPSender) Send(ctx context.Context, summary model.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "audit: marshal summary")
	}

	return resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "audit: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		if s.auth != "" {
			req.Header.Set("Authorization", "Bearer "+s.auth)
		}

		resp, err := s.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "audit: request failed")
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 300 {
			statusErr := eris.Errorf("audit: unexpected status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}
		return nil
	})
}
