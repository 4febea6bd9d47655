package domain

import "time"

// Evaluation is the AI-generated score and report for a Task.
// Created exactly once per task. Immutable after creation except for
// IsPaid, which may transition false→true exactly once.
type Evaluation struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	OwnerID      string    `json:"owner_id"`
	Score        int       `json:"score"` // 0..100
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	FullReport   string    `json:"full_report"`
	IsPaid       bool      `json:"is_paid"`
	CreatedAt    time.Time `json:"created_at"`
}

// EvaluationRequest is the input to the evaluation engine.
type EvaluationRequest struct {
	Code        string
	Language    string
	Description string
}

// EvaluationResult is the normalized output of the evaluation engine.
// Score is within [0,100]; Strengths and Improvements are never nil.
type EvaluationResult struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	FullReport   string   `json:"fullReport"`
}
