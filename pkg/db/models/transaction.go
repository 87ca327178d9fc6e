package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// Transaction is the append-only audit row for one terminal gateway outcome.
// The ux_transactions_success partial unique index allows at most one
// success row per order, which is what makes concurrent reconciliation safe
// without application-level locking.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	UserID           *uuid.UUID              `gorm:"column:user_id;type:uuid"`
	AmountPaise      int64                   `gorm:"column:amount_paise;not null"`
	Credits          int                     `gorm:"column:credits;not null;default:0"`
	Type             enums.TransactionType   `gorm:"column:type;type:transaction_type;not null;default:'single_purchase'"`
	Status           enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null"`
	GatewayOrderID   *string                 `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}
