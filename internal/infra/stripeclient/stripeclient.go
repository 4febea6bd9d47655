// Package stripeclient adapts the Stripe SDK to the domain's payment
// processor and event verifier interfaces. All calls carry a bounded
// timeout; a failure is surfaced as a typed error, never left pending.
package stripeclient

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/taskeval-network/taskeval/internal/domain"
)

const (
	metadataEvaluationID = "evaluation_id"
	metadataOwnerID      = "owner_id"
)

// Client implements domain.PaymentProcessor over Stripe payment intents.
type Client struct {
	api     *client.API
	timeout time.Duration
}

// New creates a processor client with the given secret key.
func New(secretKey string, timeout time.Duration) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{api: api, timeout: timeout}
}

// CreateIntent opens a new payment intent tagged with the evaluation and
// owner ids so confirmation events correlate back without a lookup.
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string, meta domain.IntentMetadata) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata(metadataEvaluationID, meta.EvaluationID)
	params.AddMetadata(metadataOwnerID, meta.OwnerID)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create intent: %v", domain.ErrProcessorUnavailable, err)
	}
	return fromPaymentIntent(pi), nil
}

// RetrieveIntent returns the live status of an existing intent.
func (c *Client) RetrieveIntent(ctx context.Context, id string) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve intent %s: %v", domain.ErrProcessorUnavailable, id, err)
	}
	return fromPaymentIntent(pi), nil
}

func fromPaymentIntent(pi *stripe.PaymentIntent) *domain.Intent {
	return &domain.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		EvaluationID: pi.Metadata[metadataEvaluationID],
		OwnerID:      pi.Metadata[metadataOwnerID],
	}
}
