package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/api/responses"
	"github.com/rahulnegi20/recolora-backend/api/validators"
	"github.com/rahulnegi20/recolora-backend/internal/admin"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/pagination"
)

// AdminService is the subset of the repair service the admin surface uses.
type AdminService interface {
	FixOrders(ctx context.Context, orderID *uuid.UUID) (*admin.FixReport, error)
	Search(ctx context.Context, input admin.SearchInput) ([]admin.SearchResult, error)
}

type fixOrdersRequest struct {
	OrderID string `json:"order_id,omitempty" validate:"omitempty,uuid"`
}

type fixOutcomeResponse struct {
	OrderID string  `json:"order_id"`
	JobID   *string `json:"job_id,omitempty"`
	Fixed   bool    `json:"fixed"`
	Reason  string  `json:"reason"`
}

type fixOrdersResponse struct {
	Success     bool                 `json:"success"`
	FixedCount  int                  `json:"fixed_count"`
	FixedOrders []string             `json:"fixed_orders"`
	Outcomes    []fixOutcomeResponse `json:"outcomes"`
	Errors      []string             `json:"errors"`
}

// PaymentsFix runs the repair pass over paid orders whose jobs were never
// unlocked. An empty body sweeps the recent backlog; an order_id repairs
// one order.
func PaymentsFix(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var orderID *uuid.UUID
		if r.ContentLength > 0 {
			var req fixOrdersRequest
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if req.OrderID != "" {
				parsed, err := uuid.Parse(req.OrderID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
					return
				}
				orderID = &parsed
			}
		}

		report, err := svc.FixOrders(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := fixOrdersResponse{
			Success:     report.Success,
			FixedCount:  report.FixedCount,
			FixedOrders: make([]string, 0, len(report.FixedOrders)),
			Outcomes:    make([]fixOutcomeResponse, 0, len(report.Outcomes)),
			Errors:      make([]string, 0, len(report.Errors)),
		}
		resp.Errors = append(resp.Errors, report.Errors...)
		for _, id := range report.FixedOrders {
			resp.FixedOrders = append(resp.FixedOrders, id.String())
		}
		for _, outcome := range report.Outcomes {
			item := fixOutcomeResponse{
				OrderID: outcome.OrderID.String(),
				Fixed:   outcome.Fixed,
				Reason:  string(outcome.Reason),
			}
			if outcome.JobID != nil {
				jobID := outcome.JobID.String()
				item.JobID = &jobID
			}
			resp.Outcomes = append(resp.Outcomes, item)
		}

		responses.WriteSuccess(w, resp)
	}
}

type searchRowResponse struct {
	OrderID        string    `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id,omitempty"`
	Status         string    `json:"status"`
	AmountPaise    int64     `json:"amount_paise"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	JobID          *string   `json:"job_id,omitempty"`
	JobStatus      *string   `json:"job_status,omitempty"`
	JobIsPaid      bool      `json:"job_is_paid"`
	CreatedAt      time.Time `json:"created_at"`
}

type searchResponse struct {
	Results []searchRowResponse `json:"results"`
	Count   int                 `json:"count"`
}

// PaymentsSearch is the support lookup over paid orders and their jobs.
func PaymentsSearch(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Search(r.Context(), admin.SearchInput{
			Query: r.URL.Query().Get("q"),
			Limit: limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := searchResponse{Results: make([]searchRowResponse, 0, len(rows)), Count: len(rows)}
		for _, row := range rows {
			item := searchRowResponse{
				OrderID:        row.OrderID.String(),
				GatewayOrderID: row.GatewayOrderID,
				Status:         string(row.Status),
				AmountPaise:    row.AmountPaise,
				Amount:         row.AmountRupees,
				Currency:       row.Currency,
				JobIsPaid:      row.JobIsPaid,
				CreatedAt:      row.CreatedAt,
			}
			if row.JobID != nil {
				jobID := row.JobID.String()
				item.JobID = &jobID
			}
			if row.JobStatus != nil {
				status := string(*row.JobStatus)
				item.JobStatus = &status
			}
			resp.Results = append(resp.Results, item)
		}

		responses.WriteSuccess(w, resp)
	}
}
