package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/proxy"
	"github.com/sells-group/dealmachine-cli/pkg/dealmachine"
)

const (
	msgMissingToken  = "Missing site token"
	msgInternalError = "Internal server error"
)

// handleLeads forwards one page request to DealMachine and relays the body
// untouched.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	var req proxy.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Warn("server: decode leads request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, msgMissingToken)
		return
	}

	cursor := model.FirstPage(req.PageSize)
	if req.Page > 1 {
		cursor.PageIndex = req.Page
	}

	body, err := s.leads.ListLeadsRaw(r.Context(), req.Token, cursor)
	if err != nil {
		var se *dealmachine.StatusError
		if errors.As(err, &se) {
			writeError(w, se.StatusCode, se.Error())
			return
		}
		zap.L().Error("server: proxy fetch failed",
			zap.Int("page", cursor.PageIndex),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
