package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/draxon/pulse/internal/api"
	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthTimeout bounds the database ping behind /health
const healthTimeout = 2 * time.Second

// AlertLister pages through the alert log, newest first
type AlertLister interface {
	List(ctx context.Context, offset, limit int) ([]database.Alert, int64, error)
}

// HTTPHandler serves the operations endpoints
type HTTPHandler struct {
	ping   func(ctx context.Context) error
	status StatusSource
	alerts AlertLister
	build  services.BuildInfo
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(ping func(ctx context.Context) error, status StatusSource, alerts AlertLister, build services.BuildInfo) *HTTPHandler {
	return &HTTPHandler{
		ping:   ping,
		status: status,
		alerts: alerts,
		build:  build,
	}
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// SetupRoutes configures all HTTP routes
func (h *HTTPHandler) SetupRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/alerts", h.handleAlerts)
	})
}

// handleHealth reports liveness; a failed database ping degrades it to 503
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.build.Version, Database: "ok"}
	status := http.StatusOK

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			log.Printf("HTTPHandler: Health check database ping failed: %v", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	api.RespondJSON(w, status, resp)
}

// handleStatus handles GET /api/status
func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, h.status.Report(r.Context()))
}

// handleAlerts handles GET /api/alerts?page=N&per_page=M
func (h *HTTPHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	p := api.ParsePagination(r)

	alerts, total, err := h.alerts.List(r.Context(), p.Offset(), p.PerPage)
	if err != nil {
		log.Printf("HTTPHandler: Failed to list alerts: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.NewPage(alerts, total, p))
}
