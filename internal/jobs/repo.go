package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// Repository is the narrow mutation contract for job rows. The paid flag is
// only ever written through MarkPaid so the monotonic false→true invariant
// holds everywhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateOutput(ctx context.Context, id uuid.UUID, outputURL string, status enums.JobStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a jobs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// MarkPaid flips is_paid to true. Returns false when the flag was already
// set, which callers treat as an idempotent no-op rather than an error.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND is_paid = ?", id, false).
		UpdateColumn("is_paid", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateOutput(ctx context.Context, id uuid.UUID, outputURL string, status enums.JobStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"output_url": outputURL,
			"status":     status,
		}).Error
}
