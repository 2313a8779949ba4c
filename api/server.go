// Package api exposes the read-side HTTP surface: last published snapshots,
// standings exports, health, and Prometheus metrics. It never triggers
// refreshes; that is the coalescer's job.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server serves the dashboard read API.
type Server struct {
	service dashboardservice.Service
	logger  *slog.Logger
	router  chi.Router
}

// NewServer builds the chi router with rate limiting and metrics exposure.
func NewServer(service dashboardservice.Service, logger *slog.Logger, registry *prometheus.Registry, rps float64, burst int) *Server {
	s := &Server{
		service: service,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RateLimitMiddleware(NewIPRateLimiter(rate.Limit(rps), burst)))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Route("/api/dashboards/{entityID}", func(r chi.Router) {
		r.Get("/", s.handleSnapshot)
		r.Get("/standings.xlsx", s.handleStandingsExport)
		r.Get("/recent", s.handleRecentActivity)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	entityID := dashboardtypes.EntityID(chi.URLParam(r, "entityID"))

	snapshot, exists := s.service.LatestSnapshot(entityID)
	if !exists {
		http.Error(w, "no snapshot published for entity", http.StatusNotFound)
		return
	}

	s.writeJSON(w, r, snapshot)
}

func (s *Server) handleStandingsExport(w http.ResponseWriter, r *http.Request) {
	entityID := dashboardtypes.EntityID(chi.URLParam(r, "entityID"))

	workbook, err := s.service.ExportStandings(r.Context(), entityID)
	if err != nil {
		http.Error(w, "no standings available for entity", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="standings.xlsx"`)
	if _, err := w.Write(workbook); err != nil {
		s.logger.Error("Failed to write standings export", slog.Any("error", err))
	}
}

func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	entityID := dashboardtypes.EntityID(chi.URLParam(r, "entityID"))
	s.writeJSON(w, r, s.service.RecentActivity(entityID))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode response", slog.Any("error", err))
	}
}
