package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/enums"
)

// CreateJobInput carries what the upload endpoint collects before issuing a
// presigned PUT.
type CreateJobInput struct {
	UserID      *uuid.UUID
	Filename    string
	ContentType string
}

// CreateJobResult is returned to the client so it can push the original
// image straight to the bucket.
type CreateJobResult struct {
	JobID        uuid.UUID
	UploadURL    string
	UploadExpiry time.Time
	ObjectKey    string
}

// JobView is the read model for the job status endpoint. OutputURL is only
// populated once the job is paid and processing finished.
type JobView struct {
	JobID     uuid.UUID
	Status    enums.JobStatus
	IsPaid    bool
	OutputURL *string
	CreatedAt time.Time
}
