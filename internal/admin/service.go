package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox/payloads"
	"github.com/rahulnegi20/recolora-backend/pkg/pagination"
	"github.com/rahulnegi20/recolora-backend/pkg/types"
)

// sweepLimit bounds one repair run so an unbounded backlog cannot stall the
// request.
const sweepLimit = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Payments payments.Repository
	Jobs     jobs.Repository
	Tx       txRunner
	Outbox   outboxEmitter
	Logger   *logger.Logger
}

// Service is the operator-facing repair and lookup surface. It re-links
// paid orders whose job flag never flipped, usually because a webhook was
// lost before the verify call.
type Service struct {
	payments payments.Repository
	jobs     jobs.Repository
	tx       txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Jobs == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		payments: params.Payments,
		jobs:     params.Jobs,
		tx:       params.Tx,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// FixOrders repairs one order when orderID is set, otherwise sweeps recent
// paid orders. The sweep keeps going past individual failures and reports
// them alongside the outcomes.
func (s *Service) FixOrders(ctx context.Context, orderID *uuid.UUID) (*FixReport, error) {
	if orderID != nil {
		return s.fixSingle(ctx, *orderID)
	}
	return s.sweep(ctx)
}

func (s *Service) fixSingle(ctx context.Context, orderID uuid.UUID) (*FixReport, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.payments.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return &FixReport{
			Success:  true,
			Outcomes: []FixOutcome{{OrderID: orderID, Reason: ReasonOrderNotFound}},
		}, nil
	}

	outcome, err := s.fixOne(ctx, order)
	if err != nil {
		return nil, err
	}

	report := &FixReport{Success: true, Outcomes: []FixOutcome{outcome}}
	if outcome.Fixed {
		report.FixedCount = 1
		report.FixedOrders = append(report.FixedOrders, order.ID)
	}
	if msg := desyncError(outcome); msg != "" {
		report.Errors = append(report.Errors, msg)
		report.Success = false
	}
	return report, nil
}

// desyncError flags outcomes that are real data failures rather than
// benign skips. A paid order pointing at a job that does not exist means
// the order row itself is broken and needs operator attention.
func desyncError(outcome FixOutcome) string {
	if outcome.Reason != ReasonJobNotFound || outcome.JobID == nil {
		return ""
	}
	return fmt.Sprintf("order %s: job %s not found", outcome.OrderID, *outcome.JobID)
}

func (s *Service) sweep(ctx context.Context) (*FixReport, error) {
	orders, err := s.payments.ListPaidOrders(ctx, sweepLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing paid orders")
	}

	report := &FixReport{Success: true}
	var errs error
	for i := range orders {
		order := orders[i]
		outcome, err := s.fixOne(s.logg.WithOrderID(ctx, order.ID.String()), &order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			report.Errors = append(report.Errors, fmt.Sprintf("order %s: %v", order.ID, err))
			continue
		}
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Fixed {
			report.FixedCount++
			report.FixedOrders = append(report.FixedOrders, order.ID)
		}
		if msg := desyncError(outcome); msg != "" {
			report.Errors = append(report.Errors, msg)
		}
	}

	if errs != nil {
		s.logg.Error(ctx, "repair sweep finished with failures", errs)
	}
	if len(report.Errors) > 0 {
		report.Success = false
	}
	s.logg.Info(s.logg.WithField(ctx, "fixed_count", report.FixedCount), "repair sweep finished")
	return report, nil
}

// fixOne inspects a single order and flips its job's paid flag when the
// order is paid but the job never heard about it.
func (s *Service) fixOne(ctx context.Context, order *models.Order) (FixOutcome, error) {
	outcome := FixOutcome{OrderID: order.ID, JobID: order.JobID}

	if order.Status != enums.OrderStatusPaid {
		outcome.Reason = ReasonOrderNotPaid
		return outcome, nil
	}
	if order.JobID == nil {
		outcome.Reason = ReasonNoJobID
		return outcome, nil
	}

	job, err := s.jobs.FindByID(ctx, *order.JobID)
	if err != nil {
		return outcome, fmt.Errorf("loading job: %w", err)
	}
	if job == nil {
		outcome.Reason = ReasonJobNotFound
		return outcome, nil
	}
	if job.IsPaid {
		outcome.Reason = ReasonAlreadyPaid
		return outcome, nil
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
		return outcome, fmt.Errorf("marking job paid: %w", err)
	}

	s.logg.Info(s.logg.WithJobID(ctx, job.ID.String()), "repaired unpaid job on paid order")
	outcome.Fixed = true
	outcome.Reason = ReasonFixed
	return outcome, nil
}

// Search is the read-only support lookup over paid orders and their jobs.
func (s *Service) Search(ctx context.Context, input SearchInput) ([]SearchResult, error) {
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.payments.SearchPaidOrders(ctx, input.Query, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "searching orders")
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		result := SearchResult{
			OrderID:      row.OrderID,
			Status:       row.Status,
			AmountPaise:  row.AmountPaise,
			AmountRupees: types.PaiseToRupees(row.AmountPaise),
			Currency:     row.Currency,
			JobID:        row.JobID,
			JobStatus:    row.JobStatus,
			CreatedAt:    row.CreatedAt,
		}
		if row.GatewayOrderID != nil {
			result.GatewayOrderID = *row.GatewayOrderID
		}
		if row.JobIsPaid != nil {
			result.JobIsPaid = *row.JobIsPaid
		}
		results = append(results, result)
	}
	return results, nil
}
