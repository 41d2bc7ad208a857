// Package api serves the read-only status API.
package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/wrchecker/internal/adapters/http/swagger"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/pkg/metrics"
)

// RecordsProvider exposes a snapshot of the confirmed records.
type RecordsProvider interface {
	Records() map[string]model.Score
}

// StatsProvider exposes service counters.
type StatsProvider interface {
	GetStats() map[string]any
}

// Titler resolves level display titles.
type Titler interface {
	TitleOr(id string) string
}

// Server wires HTTP routes for the status API.
type Server struct {
	router chi.Router

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	recordsHandler *RecordsHandler
	weeklyHandler  *WeeklyHandler
}

// NewServer creates a new API server with all handlers. A nil weekly
// archive leaves /weekly unrouted.
func NewServer(records RecordsProvider, stats StatsProvider, titles Titler, weekly WeeklyArchive) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		healthHandler:  NewHealthHandler(time.Now),
		statsHandler:   NewStatsHandler(stats),
		recordsHandler: NewRecordsHandler(records, titles),
	}
	if weekly != nil {
		s.weeklyHandler = NewWeeklyHandler(weekly)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(MetricsMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.healthHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
	s.router.Get("/stats", s.statsHandler.HandleStats)
	s.router.Get("/records", s.recordsHandler.HandleList)
	s.router.Get("/records/{level}", s.recordsHandler.HandleGet)
	if s.weeklyHandler != nil {
		s.router.Get("/weekly", s.weeklyHandler.HandleList)
	}
	swagger.Register(s.router)
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
