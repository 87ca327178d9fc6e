package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
)

type stubPaymentsService struct {
	createResult    *payments.CreateOrderResult
	createErr       error
	reconcileResult *payments.ReconcileResult
	reconcileErr    error
	verifyResult    *payments.VerifyResult
	verifyErr       error

	lastCreate    payments.CreateOrderInput
	lastReconcile uuid.UUID
	lastSource    payments.ReconcileSource
}

func (s *stubPaymentsService) CreateOrder(_ context.Context, input payments.CreateOrderInput) (*payments.CreateOrderResult, error) {
	s.lastCreate = input
	return s.createResult, s.createErr
}

func (s *stubPaymentsService) Reconcile(_ context.Context, orderID uuid.UUID, source payments.ReconcileSource) (*payments.ReconcileResult, error) {
	s.lastReconcile = orderID
	s.lastSource = source
	return s.reconcileResult, s.reconcileErr
}

func (s *stubPaymentsService) ApplyOutcome(_ context.Context, _ payments.OutcomeInput) (*payments.OutcomeResult, error) {
	return nil, nil
}

func (s *stubPaymentsService) Verify(_ context.Context, _, _ uuid.UUID) (*payments.VerifyResult, error) {
	return s.verifyResult, s.verifyErr
}

func TestCreateOrderReturnsRedirect(t *testing.T) {
	orderID := uuid.New()
	jobID := uuid.New()
	svc := &stubPaymentsService{
		createResult: &payments.CreateOrderResult{
			OrderID:     orderID,
			RedirectURL: "https://mercury.phonepe.com/transact/x",
			AmountPaise: 4900,
			Currency:    "INR",
			State:       enums.GatewayStatePending,
			ExpireAt:    time.Now().Add(20 * time.Minute),
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"job_id":"`+jobID.String()+`"}`))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastCreate.JobID != jobID {
		t.Fatalf("expected job id %s, got %s", jobID, svc.lastCreate.JobID)
	}

	var envelope struct {
		Data createOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID.String() {
		t.Fatalf("expected order id %s, got %s", orderID, envelope.Data.OrderID)
	}
	if envelope.Data.Amount != "49.00" {
		t.Fatalf("expected rupee amount 49.00, got %s", envelope.Data.Amount)
	}
}

func TestCreateOrderRejectsMissingJobID(t *testing.T) {
	svc := &stubPaymentsService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateOrderRejectsUnknownTier(t *testing.T) {
	svc := &stubPaymentsService{}
	body := `{"job_id":"` + uuid.NewString() + `","tier":"enterprise"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestOrderStatusReconcilesViaPoll(t *testing.T) {
	orderID := uuid.New()
	jobID := uuid.New()
	svc := &stubPaymentsService{
		reconcileResult: &payments.ReconcileResult{
			Success: true,
			Order: &models.Order{
				ID:          orderID,
				Status:      enums.OrderStatusPaid,
				AmountPaise: 4900,
			},
			JobID:   &jobID,
			Message: "payment confirmed",
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/status?order_id="+orderID.String(), nil)
	rec := httptest.NewRecorder()
	OrderStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastReconcile != orderID {
		t.Fatalf("expected reconcile of %s, got %s", orderID, svc.lastReconcile)
	}
	if svc.lastSource != payments.SourcePoll {
		t.Fatalf("expected poll source, got %s", svc.lastSource)
	}

	var envelope struct {
		Data orderStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.OrderStatusPaid) {
		t.Fatalf("expected paid status, got %s", envelope.Data.Status)
	}
	if envelope.Data.JobID == nil || *envelope.Data.JobID != jobID.String() {
		t.Fatalf("expected job id in response")
	}
}

func TestOrderStatusRequiresOrderID(t *testing.T) {
	svc := &stubPaymentsService{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/status", nil)
	rec := httptest.NewRecorder()
	OrderStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestVerifyOrderUnpaidIsPaymentRequired(t *testing.T) {
	svc := &stubPaymentsService{
		verifyErr: pkgerrors.New(pkgerrors.CodePaymentRequired, "order is not paid"),
	}
	body := `{"order_id":"` + uuid.NewString() + `","job_id":"` + uuid.NewString() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	VerifyOrder(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestVerifyOrderLinksJob(t *testing.T) {
	jobID := uuid.New()
	svc := &stubPaymentsService{
		verifyResult: &payments.VerifyResult{
			Success: true,
			JobID:   jobID,
			IsPaid:  true,
			Message: "payment verified",
		},
	}
	body := `{"order_id":"` + uuid.NewString() + `","job_id":"` + jobID.String() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	VerifyOrder(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data verifyOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.IsPaid {
		t.Fatalf("expected is_paid true")
	}
}
