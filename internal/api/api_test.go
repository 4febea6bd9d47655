package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskeval-network/taskeval/internal/app/evaluation"
	"github.com/taskeval-network/taskeval/internal/app/payment"
	"github.com/taskeval-network/taskeval/internal/domain"
	"github.com/taskeval-network/taskeval/internal/infra/evaluator"
	"github.com/taskeval-network/taskeval/internal/infra/sqlite"
)

// stubProcessor fabricates intents in memory so the payment routes can be
// driven without a live processor.
type stubProcessor struct {
	intents map[string]*domain.Intent
	serial  int
}

func (p *stubProcessor) CreateIntent(ctx context.Context, amount int64, currency string, meta domain.IntentMetadata) (*domain.Intent, error) {
	p.serial++
	intent := &domain.Intent{
		ID:           fmt.Sprintf("pi_%d", p.serial),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.serial),
		Status:       "requires_payment_method",
		EvaluationID: meta.EvaluationID,
		OwnerID:      meta.OwnerID,
	}
	p.intents[intent.ID] = intent
	return intent, nil
}

func (p *stubProcessor) RetrieveIntent(ctx context.Context, id string) (*domain.Intent, error) {
	intent, ok := p.intents[id]
	if !ok {
		return nil, domain.ErrProcessorUnavailable
	}
	out := *intent
	return &out, nil
}

// stubVerifier treats the payload as the pre-decoded event when signed
// with "valid".
type stubVerifier struct{}

func (stubVerifier) VerifyEvent(payload []byte, signature string) (*domain.IntentEvent, error) {
	if signature != "valid" {
		return nil, domain.ErrInvalidSignature
	}
	var event domain.IntentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidSignature
	}
	return &event, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubProcessor) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	proc := &stubProcessor{intents: make(map[string]*domain.Intent)}
	evalSvc := evaluation.NewService(db, &evaluator.Mock{})
	paySvc := payment.NewService(db, proc, stubVerifier{}, "usd")

	srv := httptest.NewServer(NewServer(evalSvc, paySvc, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, proc
}

// doJSON issues an authenticated JSON request and decodes the response
// body into out (when out is non-nil).
func doJSON(t *testing.T, srv *httptest.Server, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer carol")
	req.Header.Set("X-User-Email", "carol@example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func submitAndEvaluate(t *testing.T, srv *httptest.Server) (taskID, evalID string) {
	t.Helper()

	var task domain.Task
	resp := doJSON(t, srv, "POST", "/api/tasks", map[string]string{
		"title":    "reverse a list",
		"code":     "xs[::-1]",
		"language": "python",
	}, &task)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/tasks status = %d, want 201", resp.StatusCode)
	}

	var eval domain.Evaluation
	resp = doJSON(t, srv, "POST", "/api/evaluate", map[string]string{"task_id": task.ID}, &eval)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/evaluate status = %d, want 200", resp.StatusCode)
	}
	return task.ID, eval.ID
}

// ─── Auth Tests ─────────────────────────────────────────────────────────────

func TestUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("GET /api/tasks: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

// ─── Task and Evaluation Routes ─────────────────────────────────────────────

func TestSubmitAndEvaluate(t *testing.T) {
	srv, _ := newTestServer(t)
	taskID, evalID := submitAndEvaluate(t, srv)

	var task domain.Task
	resp := doJSON(t, srv, "GET", "/api/tasks/"+taskID, nil, &task)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/tasks/{id} status = %d", resp.StatusCode)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("task status = %q, want completed", task.Status)
	}

	var status evaluation.Status
	resp = doJSON(t, srv, "GET", "/api/evaluation-status/"+evalID, nil, &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/evaluation-status/{id} status = %d", resp.StatusCode)
	}
	if status.IsPaid {
		t.Error("IsPaid = true for a fresh evaluation")
	}

	var eval domain.Evaluation
	resp = doJSON(t, srv, "GET", "/api/tasks/"+taskID+"/evaluation", nil, &eval)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/tasks/{id}/evaluation status = %d", resp.StatusCode)
	}
	if eval.ID != evalID {
		t.Errorf("evaluation id = %q, want %q", eval.ID, evalID)
	}
}

func TestSubmitTask_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/tasks", map[string]string{"title": "no code"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEvaluate_UnknownTask(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/evaluate",
		map[string]string{"task_id": "6b1e43cd-1b2a-4a31-9a3c-5a4f1e2d3c4b"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestReport_RedactsWhenLocked(t *testing.T) {
	srv, _ := newTestServer(t)
	_, evalID := submitAndEvaluate(t, srv)

	var body struct {
		Evaluation domain.Evaluation `json:"evaluation"`
		FullAccess bool              `json:"full_access"`
	}
	resp := doJSON(t, srv, "GET", "/api/evaluations/"+evalID, nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.FullAccess {
		t.Error("full_access = true without payment")
	}
	if body.Evaluation.FullReport != "" || len(body.Evaluation.Improvements) != 0 {
		t.Error("locked report leaked paid content")
	}
	if body.Evaluation.Score == 0 || len(body.Evaluation.Strengths) == 0 {
		t.Error("teaser content missing from locked report")
	}
}

// ─── Payment Routes ─────────────────────────────────────────────────────────

func TestPaymentRoundTrip(t *testing.T) {
	srv, proc := newTestServer(t)
	_, evalID := submitAndEvaluate(t, srv)

	var handle domain.CheckoutHandle
	resp := doJSON(t, srv, "POST", "/api/create-payment-intent",
		map[string]string{"evaluation_id": evalID}, &handle)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create intent status = %d", resp.StatusCode)
	}
	if handle.ClientSecret == "" {
		t.Fatal("ClientSecret is empty")
	}

	proc.intents[handle.IntentID].Status = domain.IntentSucceeded

	var outcome payment.UnlockOutcome
	resp = doJSON(t, srv, "POST", "/api/payment/confirm", map[string]string{
		"evaluation_id":     evalID,
		"payment_intent_id": handle.IntentID,
	}, &outcome)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d", resp.StatusCode)
	}
	if !outcome.IsPaid || !outcome.PremiumGranted {
		t.Errorf("outcome = %+v, want unlocked with premium", outcome)
	}

	// The report is now served in full.
	var body struct {
		Evaluation domain.Evaluation `json:"evaluation"`
		FullAccess bool              `json:"full_access"`
	}
	doJSON(t, srv, "GET", "/api/evaluations/"+evalID, nil, &body)
	if !body.FullAccess || body.Evaluation.FullReport == "" {
		t.Error("paid report still redacted")
	}

	// A second intent against the unlocked evaluation conflicts.
	resp = doJSON(t, srv, "POST", "/api/create-payment-intent",
		map[string]string{"evaluation_id": evalID}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("repeat create intent status = %d, want 409", resp.StatusCode)
	}
}

func TestCreateIntent_ExplicitAmountRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	_, evalID := submitAndEvaluate(t, srv)

	resp := doJSON(t, srv, "POST", "/api/create-payment-intent",
		map[string]interface{}{"evaluation_id": evalID, "amount": -100}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ─── Webhook Route ──────────────────────────────────────────────────────────

func TestWebhook_MissingSignature(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/webhook/stripe", "application/json",
		bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhook_Delivery(t *testing.T) {
	srv, proc := newTestServer(t)
	_, evalID := submitAndEvaluate(t, srv)

	var handle domain.CheckoutHandle
	doJSON(t, srv, "POST", "/api/create-payment-intent",
		map[string]string{"evaluation_id": evalID}, &handle)
	proc.intents[handle.IntentID].Status = domain.IntentSucceeded

	payload, _ := json.Marshal(domain.IntentEvent{
		Type: domain.EventIntentSucceeded,
		Intent: domain.Intent{
			ID:           handle.IntentID,
			Status:       domain.IntentSucceeded,
			EvaluationID: evalID,
			OwnerID:      "carol",
		},
	})
	req, _ := http.NewRequest("POST", srv.URL+"/api/webhook/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "valid")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status evaluation.Status
	doJSON(t, srv, "GET", "/api/evaluation-status/"+evalID, nil, &status)
	if !status.IsPaid {
		t.Error("evaluation locked after webhook delivery")
	}
}

// ─── Profile Route ──────────────────────────────────────────────────────────

func TestRepairProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	var profile domain.Profile
	resp := doJSON(t, srv, "POST", "/api/repair-profile", nil, &profile)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if profile.ID != "carol" {
		t.Errorf("profile id = %q, want carol", profile.ID)
	}
}
