package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// Config controls the live engine.
type Config struct {
	BaseURL string // OpenAI-compatible endpoint; a local Ollama works
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Engine is the live evaluation engine over an OpenAI-compatible chat
// completion endpoint. One outbound call per Evaluate, no retries: retry
// policy belongs to the caller so duplicate AI spend stays visible.
type Engine struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New creates a live engine.
func New(cfg Config) *Engine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Engine{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Evaluate sends the reviewer prompt and normalizes the response.
func (e *Engine) Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	slog.Debug("starting AI evaluation", "model", e.model, "language", req.Language)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		slog.Error("evaluator call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrEvaluatorUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrInvalidResponseFormat
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	slog.Debug("evaluation parsed", "score", result.Score)
	return result, nil
}
