package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/storage/gcs"
)

// urlSigner is the slice of the storage client the jobs service needs.
type urlSigner interface {
	SignedUploadURL(key, contentType string, expiry time.Duration) (string, error)
	SignedReadURL(key string, expiry time.Duration) (string, error)
}

// Service exposes the job upload and status surface.
type Service interface {
	CreateJob(ctx context.Context, input CreateJobInput) (*CreateJobResult, error)
	GetJob(ctx context.Context, id uuid.UUID) (*JobView, error)
}

type service struct {
	repo   Repository
	signer urlSigner
	cfg    config.GCSConfig
	logg   *logger.Logger
}

// NewService builds a jobs service with the required dependencies.
func NewService(repo Repository, signer urlSigner, cfg config.GCSConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if signer == nil {
		return nil, fmt.Errorf("url signer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, signer: signer, cfg: cfg, logg: logg}, nil
}

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

func (s *service) CreateJob(ctx context.Context, input CreateJobInput) (*CreateJobResult, error) {
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported content type").
			WithDetails(map[string]any{"content_type": contentType})
	}

	jobID := uuid.New()
	key := gcs.UploadKey(jobID.String(), filename)

	uploadURL, err := s.signer.SignedUploadURL(key, contentType, s.cfg.UploadURLExpiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issuing upload url")
	}

	job := &models.Job{
		ID:          jobID,
		UserID:      input.UserID,
		OriginalURL: key,
		Status:      enums.JobStatusPending,
	}
	if _, err := s.repo.Create(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating job")
	}

	ctx = s.logg.WithJobID(ctx, jobID.String())
	s.logg.Info(ctx, "job created")

	return &CreateJobResult{
		JobID:        jobID,
		UploadURL:    uploadURL,
		UploadExpiry: time.Now().Add(s.cfg.UploadURLExpiry),
		ObjectKey:    key,
	}, nil
}

func (s *service) GetJob(ctx context.Context, id uuid.UUID) (*JobView, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading job")
	}
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}

	view := &JobView{
		JobID:     job.ID,
		Status:    job.Status,
		IsPaid:    job.IsPaid,
		CreatedAt: job.CreatedAt,
	}

	// Output access is payment-gated. Unpaid or unfinished jobs get status
	// only, never a readable URL.
	if job.IsPaid && job.Status == enums.JobStatusDone {
		signed, err := s.signer.SignedReadURL(gcs.OutputKey(job.ID.String()), s.cfg.DownloadURLExpiry)
		if err != nil {
			ctx = s.logg.WithJobID(ctx, job.ID.String())
			s.logg.Error(ctx, "signing output url failed", err)
		} else {
			view.OutputURL = &signed
		}
	}

	return view, nil
}
