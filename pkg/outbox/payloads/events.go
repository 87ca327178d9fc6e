package payloads

import (
	"time"

	"github.com/google/uuid"
)

// PaymentCapturedEvent is emitted when an order reaches paid state. The
// colorization pipeline keys off this to start processing the linked job.
type PaymentCapturedEvent struct {
	OrderID        uuid.UUID  `json:"orderId"`
	JobID          *uuid.UUID `json:"jobId,omitempty"`
	UserID         *uuid.UUID `json:"userId,omitempty"`
	AmountPaise    int64      `json:"amountPaise"`
	Currency       string     `json:"currency"`
	Gateway        string     `json:"gateway"`
	GatewayOrderID string     `json:"gatewayOrderId,omitempty"`
	PaymentID      string     `json:"paymentId,omitempty"`
	CapturedAt     time.Time  `json:"capturedAt"`
}

// PaymentFailedEvent reports a terminal failure on an order.
type PaymentFailedEvent struct {
	OrderID        uuid.UUID  `json:"orderId"`
	JobID          *uuid.UUID `json:"jobId,omitempty"`
	Gateway        string     `json:"gateway"`
	GatewayOrderID string     `json:"gatewayOrderId,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	FailedAt       time.Time  `json:"failedAt"`
}

// PaymentCancelledEvent reports a user-abandoned checkout.
type PaymentCancelledEvent struct {
	OrderID        uuid.UUID  `json:"orderId"`
	JobID          *uuid.UUID `json:"jobId,omitempty"`
	Gateway        string     `json:"gateway"`
	GatewayOrderID string     `json:"gatewayOrderId,omitempty"`
	CancelledAt    time.Time  `json:"cancelledAt"`
}

// JobPaidEvent is emitted when a job's paid flag flips. Admin repair emits
// this too, so the pipeline picks up jobs whose webhook was lost.
type JobPaidEvent struct {
	JobID   uuid.UUID `json:"jobId"`
	OrderID uuid.UUID `json:"orderId"`
	PaidAt  time.Time `json:"paidAt"`
}
