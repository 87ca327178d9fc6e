package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/api/middleware"
	"github.com/rahulnegi20/recolora-backend/api/responses"
	"github.com/rahulnegi20/recolora-backend/api/validators"
	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/types"
)

type createOrderRequest struct {
	JobID string `json:"job_id" validate:"required,uuid"`
	Tier  string `json:"tier,omitempty" validate:"omitempty,oneof=single_purchase upscale"`
}

type createOrderResponse struct {
	OrderID     string    `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
	AmountPaise int64     `json:"amount_paise"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	State       string    `json:"state"`
	ExpireAt    time.Time `json:"expire_at"`
}

// CreateOrder opens a purchase intent and returns the gateway redirect.
func CreateOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		result, err := svc.CreateOrder(r.Context(), payments.CreateOrderInput{
			JobID:  jobID,
			UserID: middleware.UserIDFromContext(r.Context()),
			Type:   enums.TransactionType(req.Tier),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createOrderResponse{
			OrderID:     result.OrderID.String(),
			RedirectURL: result.RedirectURL,
			AmountPaise: result.AmountPaise,
			Amount:      types.PaiseToRupees(result.AmountPaise),
			Currency:    result.Currency,
			State:       string(result.State),
			ExpireAt:    result.ExpireAt,
		})
	}
}

type orderStatusResponse struct {
	Success     bool    `json:"success"`
	OrderID     string  `json:"order_id"`
	AmountPaise int64   `json:"amount_paise"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	JobID       *string `json:"job_id,omitempty"`
	Message     string  `json:"message"`
}

// OrderStatus reconciles one order against the gateway and reports the
// authoritative state. The storefront polls this after redirect.
func OrderStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reconcile(r.Context(), orderID, payments.SourcePoll)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderStatusResponse{
			Success:     result.Success,
			OrderID:     result.Order.ID.String(),
			AmountPaise: result.Order.AmountPaise,
			Amount:      types.PaiseToRupees(result.Order.AmountPaise),
			Status:      string(result.Order.Status),
			Message:     result.Message,
		}
		if result.JobID != nil {
			id := result.JobID.String()
			resp.JobID = &id
		}
		responses.WriteSuccess(w, resp)
	}
}

type verifyOrderRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	JobID   string `json:"job_id" validate:"required,uuid"`
}

type verifyOrderResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	IsPaid  bool   `json:"is_paid"`
	Message string `json:"message"`
}

// VerifyOrder is the explicit post-payment confirmation that links a paid
// order to its job.
func VerifyOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req verifyOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		result, err := svc.Verify(r.Context(), orderID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyOrderResponse{
			Success: result.Success,
			JobID:   result.JobID.String(),
			IsPaid:  result.IsPaid,
			Message: result.Message,
		})
	}
}
