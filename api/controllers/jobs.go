package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/api/middleware"
	"github.com/rahulnegi20/recolora-backend/api/responses"
	"github.com/rahulnegi20/recolora-backend/api/validators"
	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

type createJobRequest struct {
	Filename    string `json:"filename" validate:"required,max=256"`
	ContentType string `json:"content_type" validate:"required"`
}

type createJobResponse struct {
	JobID        string    `json:"job_id"`
	UploadURL    string    `json:"upload_url"`
	UploadExpiry time.Time `json:"upload_expiry"`
	ObjectKey    string    `json:"object_key"`
}

// CreateJob registers an upload and hands back a presigned PUT URL.
func CreateJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		var req createJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateJob(r.Context(), jobs.CreateJobInput{
			UserID:      middleware.UserIDFromContext(r.Context()),
			Filename:    validators.SanitizeString(req.Filename, 256),
			ContentType: req.ContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createJobResponse{
			JobID:        result.JobID.String(),
			UploadURL:    result.UploadURL,
			UploadExpiry: result.UploadExpiry,
			ObjectKey:    result.ObjectKey,
		})
	}
}

type jobResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	IsPaid    bool      `json:"is_paid"`
	OutputURL *string   `json:"output_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetJob reports job progress. The output URL appears only once the job is
// paid and done.
func GetJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}

		view, err := svc.GetJob(r.Context(), jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, jobResponse{
			JobID:     view.JobID.String(),
			Status:    string(view.Status),
			IsPaid:    view.IsPaid,
			OutputURL: view.OutputURL,
			CreatedAt: view.CreatedAt,
		})
	}
}
