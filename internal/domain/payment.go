package domain

import "time"

// PaymentStatus tracks a local payment record.
// Transitions are driven only by confirmation signals from the external
// processor, never invented locally.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment is the local record of a payment attempt against an evaluation.
// One evaluation may accumulate multiple Payment rows over retries, but at
// most one should be pending at a time.
type Payment struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	EvaluationID string        `json:"evaluation_id"`
	Amount       int64         `json:"amount"` // smallest currency unit
	Currency     string        `json:"currency"`
	IntentID     string        `json:"intent_id"` // external processor id
	Status       PaymentStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Processor-side intent statuses this service cares about. Anything else
// is treated as non-terminal (checkout still in progress).
const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

// Intent is the external processor's view of a payment attempt.
// EvaluationID and OwnerID come from the metadata the intent was tagged
// with at creation, so confirmation events correlate without a lookup.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	EvaluationID string
	OwnerID      string
}

// IsTerminal reports whether the intent can no longer complete a checkout.
func (i *Intent) IsTerminal() bool {
	return i.Status == IntentSucceeded || i.Status == IntentCanceled
}

// IntentEventType classifies verified processor events.
type IntentEventType string

const (
	EventIntentSucceeded IntentEventType = "intent_succeeded"
	EventIntentFailed    IntentEventType = "intent_failed"
	EventIntentCanceled  IntentEventType = "intent_canceled"
	EventIgnored         IntentEventType = "ignored"
)

// IntentEvent is a verified lifecycle event from the payment processor.
type IntentEvent struct {
	Type   IntentEventType
	Intent Intent
}

// CheckoutHandle is what the UI needs to drive an embedded checkout.
type CheckoutHandle struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Reused       bool   `json:"reused"`
}
