// Package api provides the HTTP server for TaskEval. It fronts the
// evaluation and payment services with a JSON API and maps domain errors
// to HTTP statuses in one place.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskeval-network/taskeval/internal/app/evaluation"
	"github.com/taskeval-network/taskeval/internal/app/payment"
	"github.com/taskeval-network/taskeval/internal/domain"
)

// Server is the TaskEval HTTP API server.
type Server struct {
	eval           *evaluation.Service
	pay            *payment.Service
	identity       Identity
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(eval *evaluation.Service, pay *payment.Service, identity Identity) *Server {
	if identity == nil {
		identity = TokenIdentity{}
	}
	return &Server{eval: eval, pay: pay, identity: identity}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": "0.1.0",
		})
	})

	// Processor webhook: no identity middleware, the signed payload is
	// the authentication.
	r.Post("/api/webhook/stripe", s.handleWebhook)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Post("/api/tasks", s.handleSubmitTask)
		r.Get("/api/tasks", s.handleListTasks)
		r.Get("/api/tasks/{id}", s.handleGetTask)
		r.Get("/api/tasks/{id}/evaluation", s.handleTaskEvaluation)
		r.Post("/api/evaluate", s.handleEvaluate)
		r.Get("/api/evaluation-status/{id}", s.handleEvaluationStatus)
		r.Get("/api/evaluations/{id}", s.handleReport)
		r.Post("/api/create-payment-intent", s.handleCreateIntent)
		r.Post("/api/payment/confirm", s.handleConfirmReturn)
		r.Post("/api/repair-profile", s.handleRepairProfile)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": msg,
	})
}

// writeDomainError maps a typed failure to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor is the single mapping from the error taxonomy to HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrEvaluationNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEvaluationExists),
		errors.Is(err, domain.ErrAlreadyUnlocked),
		errors.Is(err, domain.ErrPremiumConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEvaluatorUnavailable),
		errors.Is(err, domain.ErrProcessorUnavailable),
		errors.Is(err, domain.ErrInvalidResponseFormat),
		errors.Is(err, domain.ErrValidationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Email")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
