package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/audit"
	"github.com/sells-group/dealmachine-cli/internal/export"
	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/scraper"
)

// ScrapeRequest is the body accepted by POST /api/scrape.
type ScrapeRequest struct {
	Token    string `json:"token"`
	PageSize int    `json:"pageSize,omitempty"`
}

// ScrapeResponse is the invocation result plus the rendered CSV when the
// run produced rows.
type ScrapeResponse struct {
	model.InvocationResult
	CSV      string `json:"csv,omitempty"`
	FileName string `json:"filename,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.scrapeMu.TryLock() {
		writeError(w, http.StatusConflict, "scrape already running")
		return
	}
	defer s.scrapeMu.Unlock()

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.opts.PageSize
	}
	driver := scraper.NewDriver(s.leads, scraper.Options{
		PageSize:  pageSize,
		PageDelay: s.opts.PageDelay,
	})

	out := driver.Run(r.Context(), req.Token)
	reporter := audit.NewReporter(audit.RecorderSender{Recorder: s.store}, s.opts.AuditTimeout)
	reporter.Report(r.Context(), out)

	resp := ScrapeResponse{InvocationResult: audit.Invocation(out)}
	if out.Kind == model.OutcomeSuccess {
		resp.CSV = out.CSV
		resp.FileName = export.FileName(s.now(), out.RowCount, "csv")
	}

	zap.L().Info("server: scrape invocation finished",
		zap.String("outcome", string(out.Kind)),
		zap.Int("count", resp.Count),
	)
	writeJSON(w, invocationStatus(out), resp)
}

func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return false
	}
	if s.opts.AuthToken == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) == 1
}

func invocationStatus(out model.RunOutcome) int {
	if !out.Failed() {
		return http.StatusOK
	}
	switch out.ErrorKind {
	case model.ErrMissingCredential:
		return http.StatusBadRequest
	case model.ErrRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
