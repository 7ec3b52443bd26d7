// Package httpapi is the thin operator-facing HTTP façade over the
// Lifecycle API (C11): routing and JSON marshalling only, no business
// logic, per spec §1's "thin request -> core call -> JSON response"
// framing. Grounded on the teacher's internal/api/server.go (chi router,
// stdlib middleware stack, writeJSON/writeError helpers, CORS for local
// development).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenhouse-io/irrigator/internal/controller"
	"github.com/greenhouse-io/irrigator/internal/domain"
)

// Server is the irrigation control loop's HTTP façade, mapping requests
// directly onto *controller.Controller's eight Lifecycle API operations.
type Server struct {
	ctrl           *controller.Controller
	metricsEnabled bool
}

// NewServer returns a Server over ctrl. metricsEnabled mounts /metrics.
func NewServer(ctrl *controller.Controller, metricsEnabled bool) *Server {
	return &Server{ctrl: ctrl, metricsEnabled: metricsEnabled}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/plants", s.handleListPlants)

	r.Route("/greenhouses/{id}", func(r chi.Router) {
		r.Post("/configure", s.handleConfigure)
		r.Post("/reload-config", s.handleReloadConfig)
		r.Post("/monitor/start", s.handleStartMonitoring)
		r.Post("/monitor/stop", s.handleStopMonitoring)
		r.Get("/analyze", s.handleAnalyze)
		r.Post("/irrigate", s.handleExecuteIrrigation)
		r.Get("/status", s.handleStatus)
	})

	r.Post("/monitor/stop", s.handleStopAllMonitoring)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error": map[string]any{
			"message": err.Error(),
		},
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotConfigured), errors.Is(err, domain.ErrNoReadings):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingEndpoint):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrActuatorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
