package stripeclient

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// Verifier implements domain.EventVerifier with Stripe's signed webhook
// scheme. Fails closed: anything the shared secret cannot authenticate is
// ErrInvalidSignature.
type Verifier struct {
	secret string
}

// NewVerifier creates an event verifier with the webhook signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// VerifyEvent authenticates a raw webhook payload and maps it to a
// domain event. Event types outside the intent lifecycle come back as
// EventIgnored so the caller can acknowledge without acting.
func (v *Verifier) VerifyEvent(payload []byte, signature string) (*domain.IntentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	var eventType domain.IntentEventType
	switch string(event.Type) {
	case "payment_intent.succeeded":
		eventType = domain.EventIntentSucceeded
	case "payment_intent.payment_failed":
		eventType = domain.EventIntentFailed
	case "payment_intent.canceled":
		eventType = domain.EventIntentCanceled
	default:
		return &domain.IntentEvent{Type: domain.EventIgnored}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode intent from event %s: %w", event.ID, err)
	}

	return &domain.IntentEvent{
		Type:   eventType,
		Intent: *fromPaymentIntent(&pi),
	}, nil
}
