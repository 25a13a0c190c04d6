package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/store"
	"github.com/sells-group/dealmachine-cli/pkg/dealmachine"
)

type fakeLeads struct {
	mu      sync.Mutex
	cursors []model.PageCursor
	tokens  []string
	raw     []byte
	pages   []model.LeadPage
	err     error
}

func (f *fakeLeads) record(token string, cursor model.PageCursor) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.cursors = append(f.cursors, cursor)
	return len(f.cursors) - 1
}

func (f *fakeLeads) ListLeads(_ context.Context, token string, cursor model.PageCursor) (*model.LeadPage, error) {
	i := f.record(token, cursor)
	if f.err != nil {
		return nil, f.err
	}
	if i >= len(f.pages) {
		return &model.LeadPage{}, nil
	}
	return &f.pages[i], nil
}

func (f *fakeLeads) ListLeadsRaw(_ context.Context, token string, cursor model.PageCursor) ([]byte, error) {
	f.record(token, cursor)
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func newTestServer(t *testing.T, leads dealmachine.Client, opts Options) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"chrome-extension://*"}
	}
	srv := New(leads, st, opts)
	srv.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	return srv, st
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func wirelessLead(street, phone string) model.LeadRecord {
	return model.LeadRecord{
		Street: model.Text(street), City: "Austin", State: "TX", Zip: "78701",
		PhoneEntries: []model.PhoneEntry{{
			Kind: "W", CarrierLabel: "T-Mobile Wireless",
			Contact: model.Contact{Phone1: model.Text(phone), GivenName: "Ann", Surname: "Lee"},
		}},
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})

	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})

	rec := do(t, srv.Handler(), http.MethodOptions, "/api/leads", "",
		"Origin", "chrome-extension://abcdef",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Equal(t, "chrome-extension://abcdef", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, srv.Handler(), http.MethodOptions, "/api/leads", "",
		"Origin", "https://evil.example.com",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLeads_Verbatim(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"results":{"properties":[{"property_address":"1 Main"}]},"extra":true}`)
	leads := &fakeLeads{raw: raw}
	srv, _ := newTestServer(t, leads, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/leads", `{"token":"site"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(raw), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	require.Len(t, leads.cursors, 1)
	assert.Equal(t, model.PageCursor{PageIndex: 1, PageSize: 100}, leads.cursors[0])
	assert.Equal(t, "site", leads.tokens[0])
}

func TestLeads_PageAndSize(t *testing.T) {
	t.Parallel()
	leads := &fakeLeads{raw: []byte(`{}`)}
	srv, _ := newTestServer(t, leads, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/leads", `{"token":"site","page":3,"pageSize":50}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, leads.cursors, 1)
	assert.Equal(t, model.PageCursor{PageIndex: 3, PageSize: 50}, leads.cursors[0])
	assert.Equal(t, 100, leads.cursors[0].Offset())
}

func TestLeads_MissingToken(t *testing.T) {
	t.Parallel()
	leads := &fakeLeads{}
	srv, _ := newTestServer(t, leads, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/leads", `{"page":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing site token", decodeError(t, rec))
	assert.Empty(t, leads.cursors)
}

func TestLeads_RemoteStatus(t *testing.T) {
	t.Parallel()
	leads := &fakeLeads{err: &dealmachine.StatusError{StatusCode: http.StatusBadGateway}}
	srv, _ := newTestServer(t, leads, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/leads", `{"token":"site"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "DealMachine API error 502", decodeError(t, rec))
}

func TestLeads_UnexpectedFailure(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{err: errors.New("dial tcp: refused")}, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/leads", `{"token":"site"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec))

	rec = do(t, srv.Handler(), http.MethodPost, "/api/leads", `not json`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec))
}

func TestScrapingLog_RecordAndList(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/scraping/log", `{"dataCount":12,"status":"completed"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var entry model.ScrapeLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 12, entry.DataCount)

	rec = do(t, h, http.MethodPost, "/api/scraping/log", `{"dataCount":0,"status":"failed"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scraping/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []model.ScrapeLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs, 2)

	rec = do(t, h, http.MethodGet, "/api/scraping/logs?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, model.RunStatusFailed, logs[0].Status)
}

func TestScrapingLog_EmptyListIsArray(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})

	rec := do(t, srv.Handler(), http.MethodGet, "/api/scraping/logs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestScrapingLog_BadInput(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})
	h := srv.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed body", http.MethodPost, "/api/scraping/log", `{`},
		{"unknown status", http.MethodPost, "/api/scraping/log", `{"dataCount":1,"status":"running"}`},
		{"negative count", http.MethodPost, "/api/scraping/log", `{"dataCount":-1,"status":"completed"}`},
		{"bad status filter", http.MethodGet, "/api/scraping/logs?status=nope", ""},
		{"bad limit", http.MethodGet, "/api/scraping/logs?limit=abc", ""},
		{"limit too large", http.MethodGet, "/api/scraping/logs?limit=9999", ""},
		{"negative offset", http.MethodGet, "/api/scraping/logs?offset=-5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestScrape_RequiresBearer(t *testing.T) {
	t.Parallel()
	leads := &fakeLeads{}
	srv, _ := newTestServer(t, leads, Options{AuthToken: "s3cret"})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/scrape", `{"token":"site"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/scrape", `{"token":"site"}`, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/scrape", `{"token":"site"}`, "Authorization", "Basic s3cret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, leads.cursors)
}

func TestScrape_Success(t *testing.T) {
	t.Parallel()
	leads := &fakeLeads{pages: []model.LeadPage{{Results: model.LeadResults{Properties: []model.LeadRecord{
		wirelessLead("1 Main St", "5125550001"),
		wirelessLead("2 Oak Ave", "5125550002"),
		wirelessLead("3 Elm Rd", "5125550001"),
	}}}}}
	srv, st := newTestServer(t, leads, Options{PageSize: 10})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scrape", `{"token":"site"}`, "Authorization", "Bearer anything")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Empty(t, resp.Error)
	assert.Equal(t, model.RunSummary{DataCount: 2, Status: model.RunStatusCompleted}, resp.Logging)
	assert.Equal(t, "dealmachine_wireless_2024-03-09_2.csv", resp.FileName)
	assert.True(t, strings.HasPrefix(resp.CSV, `"Street","City","State","Zip","PhoneNumber","FirstName","LastName"`))
	assert.Contains(t, resp.CSV, `"5125550002"`)

	require.Len(t, leads.cursors, 1)
	assert.Equal(t, 10, leads.cursors[0].PageSize)

	logs, err := st.ListScrapes(context.Background(), store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].DataCount)
	assert.Equal(t, model.RunStatusCompleted, logs[0].Status)
}

func TestScrape_Empty(t *testing.T) {
	t.Parallel()
	srv, st := newTestServer(t, &fakeLeads{}, Options{PageSize: 10})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scrape", `{"token":"site"}`, "Authorization", "Bearer x")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.CSV)
	assert.Empty(t, resp.FileName)

	logs, err := st.ListScrapes(context.Background(), store.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.RunStatusCompleted, logs[0].Status)
}

func TestScrape_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		leads      *fakeLeads
		body       string
		wantStatus int
	}{
		{"missing site token", &fakeLeads{}, `{}`, http.StatusBadRequest},
		{"remote error", &fakeLeads{err: &dealmachine.StatusError{StatusCode: 503}}, `{"token":"t"}`, http.StatusBadGateway},
		{"transport error", &fakeLeads{err: errors.New("reset")}, `{"token":"t"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st := newTestServer(t, tt.leads, Options{})

			rec := do(t, srv.Handler(), http.MethodPost, "/api/scrape", tt.body, "Authorization", "Bearer x")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ScrapeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, model.RunSummary{DataCount: 0, Status: model.RunStatusFailed}, resp.Logging)

			logs, err := st.ListScrapes(context.Background(), store.LogFilter{})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, model.RunStatusFailed, logs[0].Status)
		})
	}
}

func TestScrape_MalformedBody(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &fakeLeads{}, Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/api/scrape", `{`, "Authorization", "Bearer x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
