package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// EvaluationEngine abstracts the external AI evaluator.
// Purely functional from the caller's perspective: one outbound call, no
// other side effects, no internal retries.
type EvaluationEngine interface {
	// Evaluate scores a code snippet and produces a report.
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error)
}

// IntentMetadata tags an intent so confirmation events can be correlated
// back to the evaluation without an extra lookup.
type IntentMetadata struct {
	EvaluationID string
	OwnerID      string
}

// PaymentProcessor abstracts the external payment provider.
type PaymentProcessor interface {
	// CreateIntent opens a new payment attempt for amount in the smallest
	// currency unit.
	CreateIntent(ctx context.Context, amount int64, currency string, meta IntentMetadata) (*Intent, error)

	// RetrieveIntent returns the live status of an existing intent.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// EventVerifier authenticates processor webhook payloads with a shared
// secret. Fails closed: an unverifiable payload is ErrInvalidSignature.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (*IntentEvent, error)
}
