package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/store"
)

const maxListLimit = 500

func (s *Server) handleRecordLog(w http.ResponseWriter, r *http.Request) {
	var summary model.RunSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !summary.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be completed or failed")
		return
	}
	if summary.DataCount < 0 {
		writeError(w, http.StatusBadRequest, "dataCount must be >= 0")
		return
	}

	entry, err := s.store.RecordScrape(r.Context(), summary)
	if err != nil {
		zap.L().Error("server: record scrape log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LogFilter{Status: model.RunStatus(q.Get("status"))}

	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be completed or failed")
		return
	}

	var ok bool
	if filter.Limit, ok = intParam(q.Get("limit")); !ok || filter.Limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 0 and 500")
		return
	}
	if filter.Offset, ok = intParam(q.Get("offset")); !ok {
		writeError(w, http.StatusBadRequest, "offset must be >= 0")
		return
	}

	logs, err := s.store.ListScrapes(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list scrape logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if logs == nil {
		logs = []model.ScrapeLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// intParam parses an optional non-negative integer query value.
func intParam(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
