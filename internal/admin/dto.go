package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// FixReason explains what the repair sweep decided for one order.
type FixReason string

const (
	ReasonOrderNotFound FixReason = "order_not_found"
	ReasonOrderNotPaid  FixReason = "order_not_paid"
	ReasonNoJobID       FixReason = "no_job_id"
	ReasonJobNotFound   FixReason = "job_not_found"
	ReasonAlreadyPaid   FixReason = "already_paid"
	ReasonFixed         FixReason = "fixed"
)

// FixOutcome is the verdict for one inspected order.
type FixOutcome struct {
	OrderID uuid.UUID
	JobID   *uuid.UUID
	Fixed   bool
	Reason  FixReason
}

// FixReport is the result of a repair run, single-order or sweep.
type FixReport struct {
	Success     bool
	FixedCount  int
	FixedOrders []uuid.UUID
	Outcomes    []FixOutcome
	Errors      []string
}

// SearchInput is a support lookup over paid orders.
type SearchInput struct {
	Query string
	Limit int
}

// SearchResult is one row of the support lookup.
type SearchResult struct {
	OrderID        uuid.UUID
	GatewayOrderID string
	Status         enums.OrderStatus
	AmountPaise    int64
	AmountRupees   string
	Currency       string
	JobID          *uuid.UUID
	JobStatus      *enums.JobStatus
	JobIsPaid      bool
	CreatedAt      time.Time
}
