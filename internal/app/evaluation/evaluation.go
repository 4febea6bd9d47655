// Package evaluation implements the task lifecycle:
// pending → evaluating → {completed, failed}, with at most one persisted
// evaluation per task. A failed task may be re-run by the user; nothing
// retries automatically.
package evaluation

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

// Service drives tasks through evaluation.
type Service struct {
	db     *sqlite.DB
	engine domain.EvaluationEngine
}

// NewService creates an evaluation service.
func NewService(db *sqlite.DB, engine domain.EvaluationEngine) *Service {
	return &Service{db: db, engine: engine}
}

// SubmitRequest is a new task submission.
type SubmitRequest struct {
	Title       string
	Code        string
	Language    string
	Description string
}

// Submit creates a pending task for the user. The user's profile row is
// ensured here so later premium reads always have a row to consult.
func (s *Service) Submit(ctx context.Context, user domain.User, req SubmitRequest) (*domain.Task, error) {
	if req.Title == "" || req.Code == "" || req.Language == "" {
		return nil, fmt.Errorf("%w: title, code and language are required", domain.ErrInvalidInput)
	}

	if _, err := s.db.EnsureProfile(user); err != nil {
		return nil, fmt.Errorf("%w: ensure profile: %v", domain.ErrPersistence, err)
	}

	task := domain.Task{
		ID:          uuid.New().String(),
		OwnerID:     user.ID,
		Title:       req.Title,
		Code:        req.Code,
		Language:    req.Language,
		Description: req.Description,
		Status:      domain.TaskPending,
		CreatedAt:   time.Now(),
	}
	if err := s.db.InsertTask(task); err != nil {
		return nil, fmt.Errorf("%w: insert task: %v", domain.ErrPersistence, err)
	}

	slog.Info("task submitted", "task_id", task.ID, "language", task.Language)
	return &task, nil
}

// Task returns one of the user's tasks.
func (s *Service) Task(ctx context.Context, taskID string, user domain.User) (*domain.Task, error) {
	task, err := s.db.GetTask(taskID, user.ID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// Tasks returns the user's tasks, newest first.
func (s *Service) Tasks(ctx context.Context, user domain.User) ([]domain.Task, error) {
	return s.db.ListTasks(user.ID, 100)
}

// Run executes the evaluation state machine for a task.
//
// If an evaluation already exists the engine is not invoked again: the
// existing evaluation is returned and the task status is forced back to
// completed if it had drifted. Two concurrent runs can both pass that
// check; the store's uniqueness constraint rejects the loser, whose
// caller gets ErrEvaluationExists and should re-fetch.
func (s *Service) Run(ctx context.Context, taskID string, user domain.User) (*domain.Evaluation, error) {
	task, err := s.db.GetTask(taskID, user.ID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	existing, err := s.db.GetEvaluationByTask(taskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Self-heal a drifted status; the evaluation itself is the truth.
		if task.Status != domain.TaskCompleted {
			if err := s.db.UpdateTaskStatus(taskID, user.ID, domain.TaskCompleted); err != nil {
				slog.Error("failed to heal task status", "task_id", taskID, "error", err)
			}
		}
		slog.Info("evaluation already exists", "task_id", taskID, "evaluation_id", existing.ID)
		return existing, nil
	}

	if err := s.db.UpdateTaskStatus(taskID, user.ID, domain.TaskEvaluating); err != nil {
		slog.Error("failed to mark task evaluating", "task_id", taskID, "error", err)
	}

	start := time.Now()
	result, err := s.engine.Evaluate(ctx, domain.EvaluationRequest{
		Code:        task.Code,
		Language:    task.Language,
		Description: task.Description,
	})
	if err != nil {
		s.failTask(taskID, user.ID, err)
		metrics.EvaluationsFailed.WithLabelValues("engine").Inc()
		return nil, err
	}

	profile, err := s.db.EnsureProfile(user)
	if err != nil {
		slog.Error("failed to load profile", "user_id", user.ID, "error", err)
	}
	isPremium := profile != nil && profile.IsPremium

	eval := domain.Evaluation{
		ID:           uuid.New().String(),
		TaskID:       taskID,
		OwnerID:      user.ID,
		Score:        result.Score,
		Strengths:    result.Strengths,
		Improvements: result.Improvements,
		FullReport:   result.FullReport,
		IsPaid:       isPremium, // premium owners are unlocked from the start
		CreatedAt:    time.Now(),
	}
	if err := s.db.InsertEvaluation(eval); err != nil {
		if sqlite.IsUniqueViolation(err) {
			// Lost the race: another run persisted first. The caller should
			// re-fetch rather than retry.
			slog.Warn("concurrent evaluation won the insert", "task_id", taskID)
			return nil, fmt.Errorf("%w: %v", domain.ErrEvaluationExists, err)
		}
		s.failTask(taskID, user.ID, err)
		metrics.EvaluationsFailed.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("%w: insert evaluation: %v", domain.ErrPersistence, err)
	}

	if err := s.db.UpdateTaskStatus(taskID, user.ID, domain.TaskCompleted); err != nil {
		slog.Error("failed to mark task completed", "task_id", taskID, "error", err)
	}

	metrics.EvaluationsCompleted.Inc()
	metrics.EvaluationLatency.WithLabelValues(task.Language).Observe(time.Since(start).Seconds())
	slog.Info("evaluation completed", "task_id", taskID, "evaluation_id", eval.ID,
		"score", eval.Score, "is_paid", eval.IsPaid)
	return &eval, nil
}

// failTask is the local-recovery boundary: the failed-status write is
// best-effort and must never mask the original evaluation error.
func (s *Service) failTask(taskID, ownerID string, cause error) {
	slog.Error("evaluation failed", "task_id", taskID, "error", cause)
	if err := s.db.UpdateTaskStatus(taskID, ownerID, domain.TaskFailed); err != nil {
		slog.Error("failed to mark task failed", "task_id", taskID, "error", err)
	}
}

// Status is the lightweight lock-state read for an evaluation.
type Status struct {
	ID     string `json:"id"`
	IsPaid bool   `json:"is_paid"`
}

// EvaluationStatus returns the id and paid flag of the user's evaluation.
func (s *Service) EvaluationStatus(ctx context.Context, evaluationID string, user domain.User) (*Status, error) {
	eval, err := s.db.GetEvaluation(evaluationID, user.ID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, domain.ErrEvaluationNotFound
	}
	return &Status{ID: eval.ID, IsPaid: eval.IsPaid}, nil
}

// Report returns the user's evaluation together with the access verdict.
// Access is computed here, in one place, from premium standing OR the
// evaluation's own paid flag. Callers must not re-derive it.
func (s *Service) Report(ctx context.Context, evaluationID string, user domain.User) (*domain.Evaluation, bool, error) {
	eval, err := s.db.GetEvaluation(evaluationID, user.ID)
	if err != nil {
		return nil, false, err
	}
	if eval == nil {
		return nil, false, domain.ErrEvaluationNotFound
	}

	profile, err := s.db.GetProfile(user.ID)
	if err != nil {
		return nil, false, err
	}
	return eval, domain.HasFullAccess(profile, eval), nil
}

// RepairProfile ensures the caller has a profile row. Sign-up normally
// creates one; this covers accounts that predate profiles.
func (s *Service) RepairProfile(ctx context.Context, user domain.User) (*domain.Profile, error) {
	profile, err := s.db.EnsureProfile(user)
	if err != nil {
		return nil, fmt.Errorf("%w: ensure profile: %v", domain.ErrPersistence, err)
	}
	return profile, nil
}

// TaskEvaluation returns the evaluation attached to one of the user's
// tasks, or ErrEvaluationNotFound when the task has not completed yet.
func (s *Service) TaskEvaluation(ctx context.Context, taskID string, user domain.User) (*domain.Evaluation, error) {
	task, err := s.db.GetTask(taskID, user.ID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	eval, err := s.db.GetEvaluationByTask(taskID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, domain.ErrEvaluationNotFound
	}
	return eval, nil
}
