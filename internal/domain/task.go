// Package domain holds the core types of the evaluation service.
// A Task is a user-submitted code snippet that flows through:
// submit → evaluate → (unlock via payment).
package domain

import "time"

// TaskStatus tracks task lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskEvaluating TaskStatus = "evaluating"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is a submitted code snippet awaiting or holding evaluation results.
// A task has at most one Evaluation; the store enforces this with a
// uniqueness constraint on the evaluation's task_id.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Code        string     `json:"code"`
	Language    string     `json:"language"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// IsTerminal returns true if the task has reached a final state.
// A failed task may still be retried, re-entering "evaluating".
func (t *Task) IsTerminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}
