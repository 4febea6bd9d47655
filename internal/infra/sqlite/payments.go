package sqlite

import (
	"database/sql"
	"time"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// ─── Payment Repository ─────────────────────────────────────────────────────

// InsertPayment records a new payment attempt.
func (d *DB) InsertPayment(p domain.Payment) error {
	_, err := d.db.Exec(
		`INSERT INTO payments (id, owner_id, evaluation_id, amount, currency, intent_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.EvaluationID, p.Amount, p.Currency,
		p.IntentID, string(p.Status), p.CreatedAt.Unix(),
	)
	return err
}

// GetPaymentByIntent retrieves the payment record for an external intent id.
// Returns nil without error when no such row exists.
func (d *DB) GetPaymentByIntent(intentID string) (*domain.Payment, error) {
	row := d.db.QueryRow(
		`SELECT id, owner_id, evaluation_id, amount, currency, intent_id, status, created_at
		 FROM payments WHERE intent_id = ?`, intentID,
	)
	return scanPayment(row)
}

// LatestPendingPayment returns the most recently created pending payment
// for the owner's evaluation, or nil when none is pending.
func (d *DB) LatestPendingPayment(evaluationID, ownerID string) (*domain.Payment, error) {
	row := d.db.QueryRow(
		`SELECT id, owner_id, evaluation_id, amount, currency, intent_id, status, created_at
		 FROM payments
		 WHERE evaluation_id = ? AND owner_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		evaluationID, ownerID, string(domain.PaymentPending),
	)
	return scanPayment(row)
}

// UpdatePaymentStatusByIntent sets the status of the payment tied to an
// external intent id.
func (d *DB) UpdatePaymentStatusByIntent(intentID string, status domain.PaymentStatus) error {
	_, err := d.db.Exec(
		`UPDATE payments SET status = ? WHERE intent_id = ?`,
		string(status), intentID,
	)
	return err
}

// UpdatePaymentStatus sets the status of a payment row by local id.
func (d *DB) UpdatePaymentStatus(id string, status domain.PaymentStatus) error {
	_, err := d.db.Exec(
		`UPDATE payments SET status = ? WHERE id = ?`,
		string(status), id,
	)
	return err
}

// ListPayments returns the payment history for an owner's evaluation,
// newest first.
func (d *DB) ListPayments(evaluationID, ownerID string) ([]domain.Payment, error) {
	rows, err := d.db.Query(
		`SELECT id, owner_id, evaluation_id, amount, currency, intent_id, status, created_at
		 FROM payments WHERE evaluation_id = ? AND owner_id = ?
		 ORDER BY created_at DESC, id DESC`,
		evaluationID, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var createdAt int64

	err := s.Scan(&p.ID, &p.OwnerID, &p.EvaluationID, &p.Amount,
		&p.Currency, &p.IntentID, &p.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}
