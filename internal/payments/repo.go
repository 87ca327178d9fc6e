package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/rahulnegi20/recolora-backend/pkg/db"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// Repository is the only write path for order and transaction rows. Every
// state transition is a conditional update evaluated inside the store, so
// concurrent reconciliations (webhook, poll, admin sweep) cannot race a
// read-then-write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error
	SetJobID(ctx context.Context, orderID uuid.UUID, jobID uuid.UUID) error

	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, paymentStatus string) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, paymentStatus string) (bool, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID) (bool, error)

	InsertSuccessTransaction(ctx context.Context, txn *models.Transaction) (bool, error)
	InsertFailedTransaction(ctx context.Context, txn *models.Transaction) error
	HasSuccessTransaction(ctx context.Context, orderID uuid.UUID) (bool, error)

	ListPaidOrders(ctx context.Context, limit int) ([]models.Order, error)
	SearchPaidOrders(ctx context.Context, query string, limit int) ([]OrderSearchRow, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("gateway_order_id", gatewayOrderID).Error
}

func (r *repository) SetJobID(ctx context.Context, orderID uuid.UUID, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("job_id", jobID).Error
}

// MarkPaid promotes a pending order to paid. The WHERE clause is the whole
// race story: only one caller observes RowsAffected > 0, and a paid order
// can never be promoted again.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, paymentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":         enums.OrderStatusPaid,
			"payment_id":     paymentID,
			"payment_status": paymentStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID, paymentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":         enums.OrderStatusFailed,
			"payment_status": paymentStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkCancelled(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		UpdateColumn("status", enums.OrderStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// InsertSuccessTransaction appends the audit row for a captured payment.
// The ux_transactions_success partial index allows one success row per
// order; a unique violation means a concurrent caller already wrote it and
// is reported as (false, nil).
func (r *repository) InsertSuccessTransaction(ctx context.Context, txn *models.Transaction) (bool, error) {
	txn.Status = enums.TransactionStatusSuccess
	err := r.db.WithContext(ctx).Create(txn).Error
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_transactions_success") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) InsertFailedTransaction(ctx context.Context, txn *models.Transaction) error {
	txn.Status = enums.TransactionStatusFailed
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) HasSuccessTransaction(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, enums.TransactionStatusSuccess).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListPaidOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPaid).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// OrderSearchRow is one line of the support lookup: an order joined to the
// job it paid for.
type OrderSearchRow struct {
	OrderID        uuid.UUID         `gorm:"column:order_id"`
	GatewayOrderID *string           `gorm:"column:gateway_order_id"`
	Status         enums.OrderStatus `gorm:"column:status"`
	AmountPaise    int64             `gorm:"column:amount_paise"`
	Currency       string            `gorm:"column:currency"`
	JobID          *uuid.UUID        `gorm:"column:job_id"`
	JobStatus      *enums.JobStatus  `gorm:"column:job_status"`
	JobIsPaid      *bool             `gorm:"column:job_is_paid"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
}

func (r *repository) SearchPaidOrders(ctx context.Context, query string, limit int) ([]OrderSearchRow, error) {
	like := "%" + query + "%"
	var rows []OrderSearchRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id AS order_id,
orders.gateway_order_id,
orders.status,
orders.amount_paise,
orders.currency,
orders.job_id,
jobs.status AS job_status,
jobs.is_paid AS job_is_paid,
orders.created_at`).
		Joins("JOIN jobs ON jobs.id = orders.job_id").
		Where("orders.status = ? AND jobs.is_paid = ?", enums.OrderStatusPaid, true).
		Where(r.db.Where("CAST(orders.id AS TEXT) LIKE ?", like).
			Or("orders.gateway_order_id LIKE ?", like)).
		Order("orders.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
