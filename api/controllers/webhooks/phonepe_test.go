package webhooks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/internal/webhooks"
	phonepewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/phonepe"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

const phonePeCallbackBody = `{
	"event": "checkout.order.completed",
	"payload": {
		"merchantOrderId": "a67e8c45-5f62-4c3d-9a42-1d3f6a0d1c9b",
		"orderId": "OMO2403282020198641071317",
		"state": "COMPLETED",
		"amount": 4900,
		"paymentDetails": [{"transactionId": "T2403282020"}]
	}
}`

func TestPhonePeWebhook_SuccessAndIdempotent(t *testing.T) {
	service := &fakePhonePeService{}
	guard := newTestGuard(t, "phonepe-webhook")
	handler := PhonePeWebhook(service, &fakeValidator{valid: true}, guard, nil)

	rec := postPhonePe(handler, phonePeCallbackBody, "sha256-valid")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	// Gateway retries deliver the same body again.
	rec2 := postPhonePe(handler, phonePeCallbackBody, "sha256-valid")
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected duplicate not processed, call count %d", service.calls)
	}
}

func TestPhonePeWebhook_InvalidCredentials(t *testing.T) {
	service := &fakePhonePeService{}
	handler := PhonePeWebhook(service, &fakeValidator{valid: false}, newTestGuard(t, "phonepe-webhook"), nil)

	rec := postPhonePe(handler, phonePeCallbackBody, "sha256-wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not run on bad credentials")
	}
}

func TestPhonePeWebhook_HandlerFailureReleasesClaim(t *testing.T) {
	service := &fakePhonePeService{err: errors.New("db unavailable")}
	guard := newTestGuard(t, "phonepe-webhook")
	handler := PhonePeWebhook(service, &fakeValidator{valid: true}, guard, nil)

	rec := postPhonePe(handler, phonePeCallbackBody, "sha256-valid")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d (%s)", rec.Code, rec.Body.String())
	}

	// The claim was released, so the retry reaches the service again.
	service.err = nil
	rec2 := postPhonePe(handler, phonePeCallbackBody, "sha256-valid")
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if service.calls != 2 {
		t.Fatalf("expected two service calls, got %d", service.calls)
	}
}

func TestPhonePeWebhook_MalformedBody(t *testing.T) {
	service := &fakePhonePeService{}
	handler := PhonePeWebhook(service, &fakeValidator{valid: true}, newTestGuard(t, "phonepe-webhook"), nil)

	rec := postPhonePe(handler, `{"event": ""}`, "sha256-valid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 0 {
		t.Fatalf("service should not run on malformed body")
	}
}

func postPhonePe(handler http.HandlerFunc, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/phonepe", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", authorization)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newTestGuard(t *testing.T, scope string) *webhooks.IdempotencyGuard {
	t.Helper()
	guard, err := webhooks.NewIdempotencyGuard(newInMemoryStore(), time.Minute, scope)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

type fakePhonePeService struct {
	calls int
	err   error
}

func (s *fakePhonePeService) HandleEvent(_ context.Context, _ *phonepewebhook.CallbackEvent) (*phonepewebhook.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	orderID := uuid.New()
	return &phonepewebhook.Result{Outcome: enums.WebhookOutcomeSuccess, Applied: true, OrderID: &orderID}, nil
}

type fakeValidator struct {
	valid bool
}

func (v *fakeValidator) ValidateCallback(string) bool { return v.valid }

type inMemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{values: make(map[string]string)}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return value, nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = "1"
	_ = value
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
