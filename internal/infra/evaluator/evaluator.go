// Package evaluator adapts external AI text generation into the fixed
// evaluation result shape the service consumes. Two configurations: a
// live OpenAI-compatible client and a deterministic mock for tests.
package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskeval-network/taskeval/internal/domain"
)

// buildPrompt renders the reviewer prompt for a snippet. The model is
// instructed to answer with a single JSON object; parseResult tolerates
// surrounding prose anyway.
func buildPrompt(req domain.EvaluationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert code reviewer. Evaluate the following %s code and provide detailed feedback.\n\n", req.Language)
	fmt.Fprintf(&b, "Code:\n```%s\n%s\n```\n\n", req.Language, req.Code)
	if req.Description != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", req.Description)
	}
	b.WriteString(`Please provide your evaluation in the following JSON format:
{
  "score": <number between 0-100>,
  "strengths": [<list of strengths as strings>],
  "improvements": [<list of improvement suggestions as strings>],
  "fullReport": "<detailed analysis>"
}

Be specific and constructive. Focus on code quality, efficiency, readability, and best practices. Return ONLY the JSON.`)
	return b.String()
}

// parseResult extracts and validates the evaluation JSON from a raw model
// response. Models wrap their answer in prose often enough that the first
// balanced {...} substring is taken rather than the whole body.
func parseResult(raw string) (*domain.EvaluationResult, error) {
	obj, ok := extractJSON(raw)
	if !ok {
		return nil, domain.ErrInvalidResponseFormat
	}

	var result struct {
		Score        json.Number `json:"score"`
		Strengths    []string    `json:"strengths"`
		Improvements []string    `json:"improvements"`
		FullReport   string      `json:"fullReport"`
	}
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	score, err := result.Score.Float64()
	if err != nil || score == 0 {
		return nil, fmt.Errorf("%w: missing or zero score", domain.ErrValidationFailed)
	}
	if result.Strengths == nil || result.Improvements == nil {
		return nil, fmt.Errorf("%w: strengths and improvements must be arrays", domain.ErrValidationFailed)
	}

	return &domain.EvaluationResult{
		Score:        clampScore(int(score)),
		Strengths:    result.Strengths,
		Improvements: result.Improvements,
		FullReport:   result.FullReport,
	}, nil
}

// extractJSON returns the first balanced {...} substring of raw. Brace
// depth is tracked outside of string literals so braces inside report
// text do not truncate the match.
func extractJSON(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
