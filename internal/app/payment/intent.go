// Package payment implements the intent lifecycle and the dual-path
// unlock protocol: a pending intent is created (or reused) against an
// evaluation, and a confirmed payment is converted into a permanently
// unlocked evaluation by either the webhook push path or the
// checkout-return pull path, whichever arrives first.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskeval-network/taskeval/internal/domain"
	"github.com/taskeval-network/taskeval/internal/infra/metrics"
	"github.com/taskeval-network/taskeval/internal/infra/sqlite"
)

// DefaultUnlockAmount is the report unlock price in the smallest currency
// unit ($9.99).
const DefaultUnlockAmount int64 = 999

// Service manages payment intents and unlock reconciliation.
type Service struct {
	db        *sqlite.DB
	processor domain.PaymentProcessor
	verifier  domain.EventVerifier
	currency  string
}

// NewService creates a payment service.
func NewService(db *sqlite.DB, processor domain.PaymentProcessor, verifier domain.EventVerifier, currency string) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{db: db, processor: processor, verifier: verifier, currency: currency}
}

// CreateOrReuseIntent returns a checkout handle for unlocking the user's
// evaluation.
//
// A still-open pending intent is reused so a page refresh during checkout
// does not open a duplicate. A pending local record whose intent has
// meanwhile reached a terminal state is reconciled first, then a fresh
// intent is created. A failed liveness check logs and falls through to
// creation rather than blocking the user.
func (s *Service) CreateOrReuseIntent(ctx context.Context, evaluationID string, amount int64, user domain.User) (*domain.CheckoutHandle, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, amount)
	}

	eval, err := s.db.GetEvaluation(evaluationID, user.ID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, domain.ErrEvaluationNotFound
	}
	if eval.IsPaid {
		return nil, domain.ErrAlreadyUnlocked
	}

	profile, err := s.db.GetProfile(user.ID)
	if err != nil {
		return nil, err
	}
	if profile != nil && profile.IsPremium {
		// Premium users never reach a paid-unlock path; getting here means
		// the caller is inconsistent. Report it, do not paper over it.
		return nil, domain.ErrPremiumConflict
	}

	pending, err := s.db.LatestPendingPayment(evaluationID, user.ID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		intent, err := s.processor.RetrieveIntent(ctx, pending.IntentID)
		switch {
		case err != nil:
			// Processor unreachable: do not block checkout on the liveness
			// check, create a fresh intent instead.
			slog.Warn("pending intent liveness check failed", "intent_id", pending.IntentID, "error", err)
		case !intent.IsTerminal():
			slog.Info("reusing pending payment intent", "intent_id", intent.ID, "evaluation_id", evaluationID)
			metrics.IntentsReused.Inc()
			return &domain.CheckoutHandle{IntentID: intent.ID, ClientSecret: intent.ClientSecret, Reused: true}, nil
		default:
			// The intent finished but the local record is stale, likely a
			// completion protocol that never ran. Reconcile, then create anew.
			status := domain.PaymentCancelled
			if intent.Status == domain.IntentSucceeded {
				status = domain.PaymentCompleted
			}
			if err := s.db.UpdatePaymentStatus(pending.ID, status); err != nil {
				slog.Error("failed to reconcile stale payment", "payment_id", pending.ID, "error", err)
			}
		}
	}

	intent, err := s.processor.CreateIntent(ctx, amount, s.currency, domain.IntentMetadata{
		EvaluationID: evaluationID,
		OwnerID:      user.ID,
	})
	if err != nil {
		return nil, err
	}

	record := domain.Payment{
		ID:           uuid.New().String(),
		OwnerID:      user.ID,
		EvaluationID: evaluationID,
		Amount:       amount,
		Currency:     s.currency,
		IntentID:     intent.ID,
		Status:       domain.PaymentPending,
		CreatedAt:    time.Now(),
	}
	if err := s.db.InsertPayment(record); err != nil {
		// The external intent is now orphaned: it exists at the processor
		// with no local record. Accepted gap, there is no distributed
		// transaction here.
		slog.Error("payment insert failed after intent creation", "intent_id", intent.ID, "error", err)
		return nil, fmt.Errorf("%w: insert payment: %v", domain.ErrPersistence, err)
	}

	metrics.IntentsCreated.Inc()
	slog.Info("payment intent created", "intent_id", intent.ID, "evaluation_id", evaluationID, "amount", amount)
	return &domain.CheckoutHandle{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
