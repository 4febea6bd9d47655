package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// ─── Evaluation Repository ──────────────────────────────────────────────────

// InsertEvaluation creates the evaluation row for a task.
// Fails with a uniqueness violation (see IsUniqueViolation) when an
// evaluation already exists for the same task; the loser of a concurrent
// evaluation race lands here.
func (d *DB) InsertEvaluation(e domain.Evaluation) error {
	strengths, err := json.Marshal(emptyIfNil(e.Strengths))
	if err != nil {
		return err
	}
	improvements, err := json.Marshal(emptyIfNil(e.Improvements))
	if err != nil {
		return err
	}

	_, err = d.db.Exec(
		`INSERT INTO evaluations (id, task_id, owner_id, score, strengths, improvements, full_report, is_paid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, e.OwnerID, e.Score, string(strengths),
		string(improvements), e.FullReport, e.IsPaid, e.CreatedAt.Unix(),
	)
	return err
}

// GetEvaluation retrieves an evaluation by id for the given owner.
// Returns nil without error when no such row exists.
func (d *DB) GetEvaluation(id, ownerID string) (*domain.Evaluation, error) {
	row := d.db.QueryRow(
		`SELECT id, task_id, owner_id, score, strengths, improvements, full_report, is_paid, created_at
		 FROM evaluations WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanEvaluation(row)
}

// GetEvaluationByTask retrieves the evaluation for a task, if any.
// The caller has already owner-checked the task itself.
func (d *DB) GetEvaluationByTask(taskID string) (*domain.Evaluation, error) {
	row := d.db.QueryRow(
		`SELECT id, task_id, owner_id, score, strengths, improvements, full_report, is_paid, created_at
		 FROM evaluations WHERE task_id = ?`, taskID,
	)
	return scanEvaluation(row)
}

// MarkEvaluationPaid flips is_paid false→true for the owner's evaluation.
// The is_paid = 0 guard makes the unlock monotonic: a replay changes
// nothing and reports changed=false.
func (d *DB) MarkEvaluationPaid(id, ownerID string) (changed bool, err error) {
	res, err := d.db.Exec(
		`UPDATE evaluations SET is_paid = 1 WHERE id = ? AND owner_id = ? AND is_paid = 0`,
		id, ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanEvaluation(s scanner) (*domain.Evaluation, error) {
	var e domain.Evaluation
	var strengths, improvements string
	var createdAt int64

	err := s.Scan(&e.ID, &e.TaskID, &e.OwnerID, &e.Score,
		&strengths, &improvements, &e.FullReport, &e.IsPaid, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(strengths), &e.Strengths); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(improvements), &e.Improvements); err != nil {
		return nil, err
	}
	e.Strengths = emptyIfNil(e.Strengths)
	e.Improvements = emptyIfNil(e.Improvements)
	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
