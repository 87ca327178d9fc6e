package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/metrics"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox/payloads"
	"github.com/rahulnegi20/recolora-backend/pkg/phonepe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// gatewayClient is the slice of the PhonePe client the engine consumes.
type gatewayClient interface {
	CreateOrder(ctx context.Context, params phonepe.OrderCreateParams) (*phonepe.CheckoutOrder, error)
	GetOrderStatus(ctx context.Context, merchantOrderID string) (*phonepe.OrderStatus, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles orders against the gateway. It is the only
// authority allowed to move an order out of pending or flip a job's paid
// flag.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Reconcile(ctx context.Context, orderID uuid.UUID, source ReconcileSource) (*ReconcileResult, error)
	ApplyOutcome(ctx context.Context, input OutcomeInput) (*OutcomeResult, error)
	Verify(ctx context.Context, orderID, jobID uuid.UUID) (*VerifyResult, error)
}

// ServiceParams bundles the dependencies required to build the payments
// service.
type ServiceParams struct {
	Repo    Repository
	Jobs    jobs.Repository
	Tx      txRunner
	Gateway gatewayClient
	Outbox  outboxEmitter
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
	PhonePe config.PhonePeConfig
	Pricing config.PricingConfig
}

type service struct {
	repo    Repository
	jobs    jobs.Repository
	tx      txRunner
	gateway gatewayClient
	outbox  outboxEmitter
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	phonepe config.PhonePeConfig
	pricing config.PricingConfig
}

// NewService builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Jobs == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		jobs:    params.Jobs,
		tx:      params.Tx,
		gateway: params.Gateway,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		phonepe: params.PhonePe,
		pricing: params.Pricing,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	job, err := s.jobs.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading job")
	}
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}

	amount, txType, err := s.priceFor(input.Type)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:          uuid.New(),
		UserID:      input.UserID,
		JobID:       &job.ID,
		Status:      enums.OrderStatusPending,
		AmountPaise: amount,
		Currency:    s.pricing.Currency,
		Metadata:    orderMetadata(txType),
	}
	if _, err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	checkout, err := s.gateway.CreateOrder(ctx, phonepe.OrderCreateParams{
		MerchantOrderID: order.ID.String(),
		AmountPaise:     amount,
		RedirectURL:     fmt.Sprintf("%s/payment/return?order_id=%s", s.phonepe.RedirectBaseURL, order.ID),
		ExpireAfter:     s.phonepe.OrderExpiry,
	})
	if err != nil {
		// The pending order row stays; a later create attempt or poll will
		// settle it. Surface the gateway failure to the caller.
		s.logg.Error(ctx, "gateway order create failed", err)
		return nil, err
	}

	if err := s.repo.SetGatewayOrderID(ctx, order.ID, checkout.GatewayOrderID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing gateway order id")
	}

	s.logg.Info(ctx, "order created")
	return &CreateOrderResult{
		OrderID:     order.ID,
		RedirectURL: checkout.RedirectURL,
		AmountPaise: amount,
		Currency:    s.pricing.Currency,
		State:       checkout.State,
		ExpireAt:    checkout.ExpireAt,
	}, nil
}

// Reconcile resolves the authoritative payment state for one order and
// applies at most one transition. Safe to call concurrently from the poll
// endpoint, webhook handler, and admin sweep.
func (s *service) Reconcile(ctx context.Context, orderID uuid.UUID, source ReconcileSource) (*ReconcileResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveReconcileDuration(string(source), time.Since(start))
	}()

	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	// Paid is terminal. Short-circuit without touching the gateway.
	if order.Status == enums.OrderStatusPaid {
		s.metrics.IncReconcileOutcome(string(order.Status))
		return &ReconcileResult{Success: true, Order: order, JobID: order.JobID, Message: "payment completed"}, nil
	}

	if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		s.metrics.IncReconcileOutcome(string(order.Status))
		return &ReconcileResult{Success: true, Order: order, JobID: order.JobID, Message: "awaiting gateway order"}, nil
	}

	status, err := s.gateway.GetOrderStatus(ctx, order.ID.String())
	if err != nil {
		// Gateway failures are soft. The local row is the system of record
		// for the UI; the next poll or webhook will retry.
		s.metrics.IncGatewayFailure()
		s.logg.Warn(ctx, "gateway status query failed, returning local state")
		return &ReconcileResult{
			Success: false,
			Order:   order,
			JobID:   order.JobID,
			Message: "gateway unavailable, showing last known status",
		}, nil
	}

	switch status.State {
	case enums.GatewayStateCompleted:
		result, err := s.settlePaid(ctx, order, status.LatestTransactionID(), status.RawState, nil)
		if err != nil {
			return nil, err
		}
		s.metrics.IncReconcileOutcome(string(enums.OrderStatusPaid))
		return result, nil

	case enums.GatewayStateFailed:
		if _, err := s.settleFailed(ctx, order, status.LatestTransactionID(), status.RawState, "phonepe"); err != nil {
			return nil, err
		}
		order, err = s.reload(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		s.metrics.IncReconcileOutcome(string(order.Status))
		return &ReconcileResult{Success: true, Order: order, JobID: order.JobID, Message: "payment failed"}, nil

	default:
		s.metrics.IncReconcileOutcome(string(enums.OrderStatusPending))
		return &ReconcileResult{Success: true, Order: order, JobID: order.JobID, Message: "payment pending"}, nil
	}
}

// ApplyOutcome funnels a verified webhook event into the same transitions
// the poll path uses.
func (s *service) ApplyOutcome(ctx context.Context, input OutcomeInput) (*OutcomeResult, error) {
	order, err := s.findForOutcome(ctx, input)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	switch input.Outcome {
	case enums.WebhookOutcomeSuccess:
		result, err := s.settlePaid(ctx, order, input.GatewayPaymentID, input.RawStatus, nil)
		if err != nil {
			return nil, err
		}
		return &OutcomeResult{Order: result.Order, TransactionCreated: result.Transaction != nil, Applied: true}, nil

	case enums.WebhookOutcomeFailed:
		applied, err := s.settleFailed(ctx, order, input.GatewayPaymentID, input.RawStatus, input.Gateway)
		if err != nil {
			return nil, err
		}
		order, err = s.reload(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return &OutcomeResult{Order: order, TransactionCreated: applied, Applied: applied}, nil

	case enums.WebhookOutcomeCancelled:
		applied := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repoTx := s.repo.WithTx(tx)
			updated, err := repoTx.MarkCancelled(ctx, order.ID)
			if err != nil {
				return err
			}
			applied = updated
			if !updated {
				return nil
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentCancelled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.PaymentCancelledEvent{
					OrderID:        order.ID,
					JobID:          order.JobID,
					Gateway:        input.Gateway,
					GatewayOrderID: stringValue(order.GatewayOrderID),
					CancelledAt:    time.Now(),
				},
			})
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
		}
		order, err = s.reload(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return &OutcomeResult{Order: order, Applied: applied}, nil

	default:
		// Unknown event types are acknowledged but change nothing.
		return &OutcomeResult{Order: order, Applied: false}, nil
	}
}

// Verify is the post-redirect confirmation call that links payment to job.
func (s *service) Verify(ctx context.Context, orderID, jobID uuid.UUID) (*VerifyResult, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithJobID(ctx, jobID.String())

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodePaymentRequired, "order is not paid").
			WithDetails(map[string]any{"status": order.Status})
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading job")
	}
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.jobs.WithTx(tx).MarkPaid(ctx, job.ID); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobPaid,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Version:       1,
			Data: payloads.JobPaidEvent{
				JobID:   job.ID,
				OrderID: order.ID,
				PaidAt:  time.Now(),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking job paid")
	}

	// The job link on the order is repaired best-effort. A failure here
	// must not undo the verification the user just completed.
	if order.JobID == nil || *order.JobID != job.ID {
		if err := s.repo.SetJobID(ctx, order.ID, job.ID); err != nil {
			s.logg.Error(ctx, "repairing order job link failed", err)
		}
	}

	s.logg.Info(ctx, "payment verified")
	return &VerifyResult{Success: true, JobID: job.ID, IsPaid: true, Message: "payment verified"}, nil
}

// settlePaid applies the one authoritative paid transition with its side
// effects in a single transaction: conditional status promotion, the success
// audit row, the job paid flag, and the outbox announcement. Every path that
// confirms a payment (gateway poll, webhook, races between them) lands here.
func (s *service) settlePaid(ctx context.Context, order *models.Order, gatewayPaymentID, rawStatus string, actor *outbox.ActorRef) (*ReconcileResult, error) {
	var createdTxn *models.Transaction

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)

		promoted, err := repoTx.MarkPaid(ctx, order.ID, gatewayPaymentID, rawStatus)
		if err != nil {
			return err
		}
		if !promoted {
			// Someone else finished first, or the order is in a terminal
			// non-paid state. Re-read inside the tx and decide.
			current, err := repoTx.FindOrderByID(ctx, order.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			if current.Status != enums.OrderStatusPaid {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not promotable").
					WithDetails(map[string]any{"status": current.Status})
			}
			// Already paid: side effects were committed with that promotion.
			return nil
		}

		txn := &models.Transaction{
			OrderID:        order.ID,
			UserID:         order.UserID,
			AmountPaise:    order.AmountPaise,
			Type:           transactionTypeFromMetadata(order.Metadata),
			GatewayOrderID: order.GatewayOrderID,
		}
		if gatewayPaymentID != "" {
			txn.GatewayPaymentID = &gatewayPaymentID
		}
		created, err := repoTx.InsertSuccessTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if created {
			createdTxn = txn
		}

		if order.JobID != nil {
			if _, err := s.jobs.WithTx(tx).MarkPaid(ctx, *order.JobID); err != nil {
				return err
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventJobPaid,
				AggregateType: enums.AggregateJob,
				AggregateID:   *order.JobID,
				Actor:         actor,
				Version:       1,
				Data: payloads.JobPaidEvent{
					JobID:   *order.JobID,
					OrderID: order.ID,
					PaidAt:  time.Now(),
				},
			}); err != nil {
				return err
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.PaymentCapturedEvent{
				OrderID:        order.ID,
				JobID:          order.JobID,
				UserID:         order.UserID,
				AmountPaise:    order.AmountPaise,
				Currency:       order.Currency,
				Gateway:        "phonepe",
				GatewayOrderID: stringValue(order.GatewayOrderID),
				PaymentID:      gatewayPaymentID,
				CapturedAt:     time.Now(),
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling paid order")
	}

	settled, err := s.reload(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "order settled as paid")
	return &ReconcileResult{
		Success:     true,
		Order:       settled,
		JobID:       settled.JobID,
		Transaction: createdTxn,
		Message:     "payment completed",
	}, nil
}

// settleFailed applies the terminal failed transition with its audit row
// and outbox announcement. Returns false when the order had already left
// pending, in which case nothing is written.
func (s *service) settleFailed(ctx context.Context, order *models.Order, gatewayPaymentID, rawStatus, gateway string) (bool, error) {
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		updated, err := repoTx.MarkFailed(ctx, order.ID, rawStatus)
		if err != nil {
			return err
		}
		applied = updated
		if !updated {
			return nil
		}
		txn := &models.Transaction{
			OrderID:        order.ID,
			UserID:         order.UserID,
			AmountPaise:    order.AmountPaise,
			Type:           transactionTypeFromMetadata(order.Metadata),
			GatewayOrderID: order.GatewayOrderID,
		}
		if gatewayPaymentID != "" {
			txn.GatewayPaymentID = &gatewayPaymentID
		}
		if err := repoTx.InsertFailedTransaction(ctx, txn); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				OrderID:        order.ID,
				JobID:          order.JobID,
				Gateway:        gateway,
				GatewayOrderID: stringValue(order.GatewayOrderID),
				Reason:         rawStatus,
				FailedAt:       time.Now(),
			},
		})
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order failed")
	}
	return applied, nil
}

func (s *service) findForOutcome(ctx context.Context, input OutcomeInput) (*models.Order, error) {
	if input.OrderID != nil {
		order, err := s.repo.FindOrderByID(ctx, *input.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		return order, nil
	}
	if input.GatewayOrderID != "" {
		order, err := s.repo.FindOrderByGatewayOrderID(ctx, input.GatewayOrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) priceFor(txType enums.TransactionType) (int64, enums.TransactionType, error) {
	switch txType {
	case "", enums.TransactionTypeSinglePurchase:
		return s.pricing.SingleImagePaise, enums.TransactionTypeSinglePurchase, nil
	case enums.TransactionTypeUpscale:
		return s.pricing.UpscalePaise, enums.TransactionTypeUpscale, nil
	default:
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported purchase type").
			WithDetails(map[string]any{"type": txType})
	}
}

// orderMetadata records the purchase type on the order so settlement can
// reconstruct the transaction row without a second lookup.
func orderMetadata(txType enums.TransactionType) json.RawMessage {
	raw, err := json.Marshal(map[string]string{"purchase_type": string(txType)})
	if err != nil {
		return nil
	}
	return raw
}

func transactionTypeFromMetadata(raw json.RawMessage) enums.TransactionType {
	if len(raw) == 0 {
		return enums.TransactionTypeSinglePurchase
	}
	var meta struct {
		PurchaseType string `json:"purchase_type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return enums.TransactionTypeSinglePurchase
	}
	if t := enums.TransactionType(meta.PurchaseType); t.IsValid() {
		return t
	}
	return enums.TransactionTypeSinglePurchase
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
