package sqlite

import (
	"database/sql"
	"time"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// ─── Task Repository ────────────────────────────────────────────────────────
// Every read and write is owner-scoped: the WHERE clause carries owner_id
// so one tenant can never see or mutate another's rows.

// InsertTask creates a new task record.
func (d *DB) InsertTask(task domain.Task) error {
	_, err := d.db.Exec(
		`INSERT INTO tasks (id, owner_id, title, code, language, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OwnerID, task.Title, task.Code, task.Language,
		task.Description, string(task.Status), task.CreatedAt.Unix(),
		nullableUnix(task.UpdatedAt),
	)
	return err
}

// GetTask retrieves a task by id for the given owner.
// Returns nil without error when no such row exists.
func (d *DB) GetTask(id, ownerID string) (*domain.Task, error) {
	row := d.db.QueryRow(
		`SELECT id, owner_id, title, code, language, description, status, created_at, updated_at
		 FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	return scanTask(row)
}

// ListTasks returns the owner's tasks, newest first.
func (d *DB) ListTasks(ownerID string, limit int) ([]domain.Task, error) {
	rows, err := d.db.Query(
		`SELECT id, owner_id, title, code, language, description, status, created_at, updated_at
		 FROM tasks WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus transitions a task's status.
func (d *DB) UpdateTaskStatus(id, ownerID string, status domain.TaskStatus) error {
	_, err := d.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		string(status), time.Now().Unix(), id, ownerID,
	)
	return err
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var createdAt int64
	var updatedAt sql.NullInt64

	err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Code, &t.Language,
		&t.Description, &t.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.Unix(createdAt, 0)
	if updatedAt.Valid {
		t.UpdatedAt = time.Unix(updatedAt.Int64, 0)
	}
	return &t, nil
}
