package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// Job is one image colorization unit of work. UserID is nullable because
// anonymous single-image purchases exist. IsPaid only ever moves false→true,
// and only through the payments service or the admin repair sweep.
type Job struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      *uuid.UUID      `gorm:"column:user_id;type:uuid;index"`
	OriginalURL string          `gorm:"column:original_url;not null"`
	OutputURL   *string         `gorm:"column:output_url"`
	Status      enums.JobStatus `gorm:"column:status;type:job_status;not null;default:'pending'"`
	IsPaid      bool            `gorm:"column:is_paid;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
