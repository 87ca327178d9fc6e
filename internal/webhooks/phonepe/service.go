package phonepewebhook

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
	"github.com/rahulnegi20/recolora-backend/pkg/phonepe"
)

type paymentApplier interface {
	ApplyOutcome(ctx context.Context, input payments.OutcomeInput) (*payments.OutcomeResult, error)
}

type ServiceParams struct {
	Payments paymentApplier
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

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

// CallbackEvent is the PhonePe server-to-server callback body.
type CallbackEvent struct {
	Event   string          `json:"event"`
	Payload CallbackPayload `json:"payload"`
}

type CallbackPayload struct {
	MerchantOrderID string                  `json:"merchantOrderId"`
	OrderID         string                  `json:"orderId"`
	State           string                  `json:"state"`
	ErrorCode       string                  `json:"errorCode"`
	AmountPaise     int64                   `json:"amount"`
	PaymentDetails  []phonepe.PaymentDetail `json:"paymentDetails"`
}

// DedupeID identifies one logical delivery. PhonePe sends no event id, so
// the event type plus the gateway order reference has to serve.
func (e *CallbackEvent) DedupeID() string {
	ref := e.Payload.OrderID
	if ref == "" {
		ref = e.Payload.MerchantOrderID
	}
	return fmt.Sprintf("%s:%s", e.Event, ref)
}

// ParseEvent decodes and minimally validates a callback body.
func ParseEvent(payload []byte) (*CallbackEvent, error) {
	var event CallbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding callback body")
	}
	if event.Event == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback event type missing")
	}
	if event.Payload.MerchantOrderID == "" && event.Payload.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback order reference missing")
	}
	return &event, nil
}

// Result reports what one callback delivery did to order state.
type Result struct {
	Outcome enums.WebhookOutcome
	Applied bool
	OrderID *uuid.UUID
}

// HandleEvent maps a verified callback onto the canonical outcome and hands
// it to the payments service. Unknown event types are acknowledged untouched
// so PhonePe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *CallbackEvent) (*Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback event required")
	}

	outcome := enums.OutcomeForPhonePeEvent(event.Event, event.Payload.ErrorCode)
	if outcome == enums.WebhookOutcomeIgnored {
		s.metrics.IncWebhookOutcome("phonepe", string(outcome))
		s.logg.Info(s.logg.WithField(ctx, "event", event.Event), "unhandled callback event type")
		return &Result{Outcome: outcome}, nil
	}

	input := payments.OutcomeInput{
		Outcome:          outcome,
		GatewayPaymentID: latestPaymentID(event.Payload.PaymentDetails),
		RawStatus:        event.Payload.State,
		Gateway:          "phonepe",
	}
	if orderID, err := uuid.Parse(event.Payload.MerchantOrderID); err == nil {
		input.OrderID = &orderID
	} else {
		input.GatewayOrderID = event.Payload.OrderID
	}

	applied, err := s.payments.ApplyOutcome(ctx, input)
	if err != nil {
		return nil, err
	}

	s.metrics.IncWebhookOutcome("phonepe", string(outcome))
	ctx = s.logg.WithOrderID(ctx, applied.Order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "callback processed")

	return &Result{
		Outcome: outcome,
		Applied: applied.Applied || applied.TransactionCreated,
		OrderID: &applied.Order.ID,
	}, nil
}

func latestPaymentID(details []phonepe.PaymentDetail) string {
	if len(details) == 0 {
		return ""
	}
	return details[len(details)-1].TransactionID
}
