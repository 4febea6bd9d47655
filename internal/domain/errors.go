package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency. The API layer maps
// them to HTTP statuses with errors.Is.

var (
	// Lookup errors
	ErrTaskNotFound       = errors.New("task not found")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrProfileNotFound    = errors.New("profile not found")

	// Caller errors
	ErrUnauthorized  = errors.New("caller is not authenticated")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// Conflict errors
	ErrEvaluationExists = errors.New("evaluation already exists for this task")
	ErrAlreadyUnlocked  = errors.New("evaluation is already unlocked")
	ErrPremiumConflict  = errors.New("premium accounts do not pay to unlock")

	// Evaluator errors
	ErrEvaluatorUnavailable  = errors.New("evaluation engine unreachable or timed out")
	ErrInvalidResponseFormat = errors.New("no JSON object found in evaluator response")
	ErrValidationFailed      = errors.New("evaluator response missing required fields")

	// Payment processor errors
	ErrProcessorUnavailable = errors.New("payment processor unreachable or timed out")
	ErrInvalidSignature     = errors.New("event signature verification failed")

	// Store errors
	ErrPersistence = errors.New("store write failed")
)
