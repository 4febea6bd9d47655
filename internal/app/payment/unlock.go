package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskeval-network/taskeval/internal/domain"
	"github.com/taskeval-network/taskeval/internal/infra/metrics"
)

// ─── Unlock Reconciler ──────────────────────────────────────────────────────
// Two independent entry points converge on the same end state: the push
// path (processor webhook) and the pull path (checkout return). Every
// write is guarded by a prior read of current state, so each path
// tolerates the other having already done the work.

// HandleEvent is the push path. The payload is authenticated with the
// shared secret before anything in it is trusted; verification failure
// fails closed.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}
	metrics.WebhookEvents.WithLabelValues(string(event.Type)).Inc()

	intent := event.Intent
	switch event.Type {
	case domain.EventIntentSucceeded:
		if intent.EvaluationID == "" || intent.OwnerID == "" {
			return fmt.Errorf("%w: intent %s carries no evaluation metadata", domain.ErrInvalidInput, intent.ID)
		}

		existing, err := s.db.GetPaymentByIntent(intent.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == domain.PaymentCompleted {
			// Replayed delivery; everything below already happened.
			slog.Info("webhook replay, payment already completed", "intent_id", intent.ID)
			return nil
		}
		return s.applyUnlock(ctx, intent.ID, intent.EvaluationID, intent.OwnerID, "push")

	case domain.EventIntentFailed:
		slog.Info("payment failed", "intent_id", intent.ID)
		return s.db.UpdatePaymentStatusByIntent(intent.ID, domain.PaymentFailed)

	case domain.EventIntentCanceled:
		slog.Info("payment cancelled", "intent_id", intent.ID)
		return s.db.UpdatePaymentStatusByIntent(intent.ID, domain.PaymentCancelled)

	default:
		return nil
	}
}

// UnlockOutcome is what the pull path reports back to the UI.
type UnlockOutcome struct {
	Evaluation     *domain.Evaluation `json:"evaluation"`
	IsPaid         bool               `json:"is_paid"`
	PremiumGranted bool               `json:"premium_granted"`
}

// ConfirmReturn is the pull path, invoked when the user lands back from
// checkout with the intent id as a hint. It repairs the unlock if the
// webhook has not arrived (or failed half-way), and grants the owner
// premium standing for completing a paid unlock.
//
// The premium grant happens only here, not on the push path. That
// asymmetry is deliberate behavior of this service, not an oversight in
// the caller.
func (s *Service) ConfirmReturn(ctx context.Context, evaluationID string, user domain.User, intentIDHint string) (*UnlockOutcome, error) {
	eval, err := s.db.GetEvaluation(evaluationID, user.ID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, domain.ErrEvaluationNotFound
	}
	if eval.IsPaid {
		return &UnlockOutcome{Evaluation: eval, IsPaid: true}, nil
	}
	if intentIDHint == "" {
		return &UnlockOutcome{Evaluation: eval}, nil
	}

	intent, err := s.processor.RetrieveIntent(ctx, intentIDHint)
	if err != nil {
		// The webhook remains the other chance to apply this unlock; render
		// the current (locked) state rather than failing the return page.
		slog.Error("pull-path intent verification failed", "intent_id", intentIDHint, "error", err)
		return &UnlockOutcome{Evaluation: eval}, nil
	}

	// A forged or misrouted hint must not unlock someone else's report:
	// the intent has to be succeeded AND tagged with this evaluation.
	if intent.Status != domain.IntentSucceeded || intent.EvaluationID != evaluationID {
		slog.Warn("intent hint did not verify", "intent_id", intent.ID,
			"status", intent.Status, "tagged_evaluation", intent.EvaluationID)
		return &UnlockOutcome{Evaluation: eval}, nil
	}

	if err := s.applyUnlock(ctx, intent.ID, evaluationID, user.ID, "pull"); err != nil {
		slog.Error("pull-path unlock failed", "intent_id", intent.ID, "error", err)
		return &UnlockOutcome{Evaluation: eval}, nil
	}
	eval.IsPaid = true

	outcome := &UnlockOutcome{Evaluation: eval, IsPaid: true}
	if err := s.db.SetPremium(user.ID); err != nil {
		slog.Error("premium grant failed", "user_id", user.ID, "error", err)
	} else {
		outcome.PremiumGranted = true
		metrics.PremiumGrants.Inc()
		slog.Info("profile upgraded to premium", "user_id", user.ID)
	}
	return outcome, nil
}

// applyUnlock is the single mutation both paths converge on: mark the
// payment completed, then flip the evaluation's paid flag. The flip is a
// compare-and-set (is_paid = 0 guard in the store), so whichever path
// arrives second is a no-op. A failure between the two writes leaves a
// completed payment with a locked evaluation, recoverable because the
// other path re-runs this function against current state.
func (s *Service) applyUnlock(ctx context.Context, intentID, evaluationID, ownerID, path string) error {
	if err := s.db.UpdatePaymentStatusByIntent(intentID, domain.PaymentCompleted); err != nil {
		return fmt.Errorf("%w: complete payment: %v", domain.ErrPersistence, err)
	}

	changed, err := s.db.MarkEvaluationPaid(evaluationID, ownerID)
	if err != nil {
		return fmt.Errorf("%w: unlock evaluation: %v", domain.ErrPersistence, err)
	}
	if changed {
		metrics.UnlocksApplied.WithLabelValues(path).Inc()
		slog.Info("evaluation unlocked", "evaluation_id", evaluationID, "path", path)
	} else {
		slog.Info("evaluation already unlocked", "evaluation_id", evaluationID, "path", path)
	}
	return nil
}
