package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// ReconcileSource labels who asked for reconciliation, for metrics only.
type ReconcileSource string

const (
	SourcePoll    ReconcileSource = "poll"
	SourceWebhook ReconcileSource = "webhook"
	SourceAdmin   ReconcileSource = "admin"
)

// CreateOrderInput opens a purchase intent for an uploaded job.
type CreateOrderInput struct {
	JobID  uuid.UUID
	UserID *uuid.UUID
	Type   enums.TransactionType
}

// CreateOrderResult carries the checkout redirect back to the client.
type CreateOrderResult struct {
	OrderID     uuid.UUID
	RedirectURL string
	AmountPaise int64
	Currency    string
	State       enums.GatewayState
	ExpireAt    time.Time
}

// ReconcileResult reports the authoritative state after one reconciliation
// pass. Success is false only when the gateway could not be consulted and
// the local state may be stale.
type ReconcileResult struct {
	Success     bool
	Order       *models.Order
	JobID       *uuid.UUID
	Transaction *models.Transaction
	Message     string
}

// OutcomeInput is the canonical form both webhook paths reduce to before
// touching order state. Exactly one of OrderID / GatewayOrderID is set.
type OutcomeInput struct {
	OrderID          *uuid.UUID
	GatewayOrderID   string
	Outcome          enums.WebhookOutcome
	GatewayPaymentID string
	RawStatus        string
	Gateway          string
}

// OutcomeResult reports what a webhook-driven transition actually did.
type OutcomeResult struct {
	Order              *models.Order
	TransactionCreated bool
	Applied            bool
}

// VerifyResult answers the post-redirect verification call.
type VerifyResult struct {
	Success bool
	JobID   uuid.UUID
	IsPaid  bool
	Message string
}
