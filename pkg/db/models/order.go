package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// Order is the purchase intent for one colorization job. Rows are financial
// audit records and are never deleted. Status moves through the
// reconciliation paths only; JobID is an indexed join column, with the
// metadata blob kept for auxiliary keys like the purchase tier.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	JobID          *uuid.UUID        `gorm:"column:job_id;type:uuid;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	AmountPaise    int64             `gorm:"column:amount_paise;not null"`
	Currency       string            `gorm:"column:currency;not null;default:'INR'"`
	GatewayOrderID *string           `gorm:"column:gateway_order_id;uniqueIndex"`
	PaymentID      *string           `gorm:"column:payment_id"`
	PaymentStatus  *string           `gorm:"column:payment_status"`
	Metadata       json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	Transactions   []Transaction     `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
