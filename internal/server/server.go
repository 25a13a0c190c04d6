// Package server exposes the lead proxy, scrape log, and scrape invocation
// endpoints over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/store"
	"github.com/sells-group/dealmachine-cli/pkg/dealmachine"
)

// Options configures the server.
type Options struct {
	// PageSize and PageDelay apply to server-side scrape runs.
	PageSize  int
	PageDelay time.Duration

	// AuthToken, when set, is the only bearer accepted by /api/scrape.
	AuthToken string

	AllowedOrigins []string

	// AuditTimeout bounds recording a run's summary.
	AuditTimeout time.Duration
}

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	leads dealmachine.Client
	store store.Store
	opts  Options
	now   func() time.Time

	// Only one scrape run at a time.
	scrapeMu sync.Mutex
}

// New creates a Server. leads serves both the proxy endpoint and
// server-side scrape runs.
func New(leads dealmachine.Client, st store.Store, opts Options) *Server {
	return &Server{
		leads: leads,
		store: st,
		opts:  opts,
		now:   time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/leads", s.handleLeads)
		r.Post("/scraping/log", s.handleRecordLog)
		r.Get("/scraping/logs", s.handleListLogs)
		r.Post("/scrape", s.handleScrape)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
