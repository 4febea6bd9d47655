package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskeval-network/taskeval/internal/app/evaluation"
	"github.com/taskeval-network/taskeval/internal/app/payment"
)

// validate checks request bodies against their struct tags.
var validate = validator.New()

// decodeBody decodes and validates a JSON request body into v.
// Returns false after writing the error response.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// --- /api/tasks ---

type submitTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Code        string `json:"code" validate:"required,max=65536"`
	Language    string `json:"language" validate:"required,max=40"`
	Description string `json:"description" validate:"max=2000"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.eval.Submit(r.Context(), userFrom(r.Context()), evaluation.SubmitRequest{
		Title:       req.Title,
		Code:        req.Code,
		Language:    req.Language,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.eval.Tasks(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.eval.Task(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleTaskEvaluation serves the task detail page's evaluation fetch.
// 404 until the task has a persisted evaluation.
func (s *Server) handleTaskEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := s.eval.TaskEvaluation(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// --- /api/evaluate ---

type evaluateRequest struct {
	TaskID string `json:"task_id" validate:"required,uuid4"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	eval, err := s.eval.Run(r.Context(), req.TaskID, userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// --- /api/evaluation-status/{id} ---

func (s *Server) handleEvaluationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.eval.EvaluationStatus(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// --- /api/evaluations/{id} ---

// handleReport returns the evaluation, redacting the full report and
// improvement details unless the caller has full access.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	eval, fullAccess, err := s.eval.Report(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !fullAccess {
		locked := *eval
		locked.FullReport = ""
		locked.Improvements = []string{}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"evaluation":  locked,
			"full_access": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluation":  eval,
		"full_access": true,
	})
}

// --- /api/create-payment-intent ---

type createIntentRequest struct {
	EvaluationID string `json:"evaluation_id" validate:"required,uuid4"`
	// Amount in the smallest currency unit. Omitted means the default
	// unlock price; an explicit non-positive value is rejected downstream.
	Amount *int64 `json:"amount"`
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount := payment.DefaultUnlockAmount
	if req.Amount != nil {
		amount = *req.Amount
	}

	handle, err := s.pay.CreateOrReuseIntent(r.Context(), req.EvaluationID, amount, userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handle)
}

// --- /api/webhook/stripe ---

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeError(w, http.StatusBadRequest, "missing signature")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	if err := s.pay.HandleEvent(r.Context(), payload, signature); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// --- /api/payment/confirm ---

type confirmReturnRequest struct {
	EvaluationID    string `json:"evaluation_id" validate:"required,uuid4"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (s *Server) handleConfirmReturn(w http.ResponseWriter, r *http.Request) {
	var req confirmReturnRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := s.pay.ConfirmReturn(r.Context(), req.EvaluationID, userFrom(r.Context()), req.PaymentIntentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// --- /api/repair-profile ---

func (s *Server) handleRepairProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.eval.RepairProfile(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
