package cashfreewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/metrics"
)

type paymentApplier interface {
	ApplyOutcome(ctx context.Context, input payments.OutcomeInput) (*payments.OutcomeResult, error)
}

type ServiceParams struct {
	Payments paymentApplier
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// Service handles the legacy Cashfree notification path. Orders created
// before the PhonePe migration still receive their terminal callbacks here.
type Service struct {
	payments paymentApplier
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// CallbackEvent is the Cashfree webhook body (2023-08-01 schema).
type CallbackEvent struct {
	Type      string       `json:"type"`
	EventTime string       `json:"event_time"`
	Data      CallbackData `json:"data"`
}

type CallbackData struct {
	Order   CallbackOrder   `json:"order"`
	Payment CallbackPayment `json:"payment"`
}

type CallbackOrder struct {
	OrderID     string      `json:"order_id"`
	OrderAmount json.Number `json:"order_amount"`
}

type CallbackPayment struct {
	CfPaymentID   json.Number `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
}

// DedupeID identifies one logical delivery.
func (e *CallbackEvent) DedupeID() string {
	return fmt.Sprintf("%s:%s", e.Type, e.Data.Order.OrderID)
}

// ParseEvent decodes and minimally validates a webhook body.
func ParseEvent(payload []byte) (*CallbackEvent, error) {
	var event CallbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook body")
	}
	if event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	if event.Data.Order.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook order id missing")
	}
	return &event, nil
}

// Result reports what one delivery did to order state.
type Result struct {
	Outcome enums.WebhookOutcome
	Applied bool
	OrderID *uuid.UUID
}

// HandleEvent translates the legacy vocabulary onto the canonical outcome
// and applies it through the payments service.
func (s *Service) HandleEvent(ctx context.Context, event *CallbackEvent) (*Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	outcome := enums.OutcomeForCashfreeEvent(event.Type)
	if outcome == enums.WebhookOutcomeIgnored {
		s.metrics.IncWebhookOutcome("cashfree", string(outcome))
		s.logg.Info(s.logg.WithField(ctx, "event", event.Type), "unhandled webhook event type")
		return &Result{Outcome: outcome}, nil
	}

	orderID, err := uuid.Parse(event.Data.Order.OrderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook order id is not a valid order")
	}

	applied, err := s.payments.ApplyOutcome(ctx, payments.OutcomeInput{
		OrderID:          &orderID,
		Outcome:          outcome,
		GatewayPaymentID: event.Data.Payment.CfPaymentID.String(),
		RawStatus:        event.Data.Payment.PaymentStatus,
		Gateway:          "cashfree",
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncWebhookOutcome("cashfree", string(outcome))
	ctx = s.logg.WithOrderID(ctx, applied.Order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "webhook processed")

	return &Result{
		Outcome: outcome,
		Applied: applied.Applied || applied.TransactionCreated,
		OrderID: &applied.Order.ID,
	}, nil
}
