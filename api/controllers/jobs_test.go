package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
)

type stubJobsService struct {
	createResult *jobs.CreateJobResult
	createErr    error
	view         *jobs.JobView
	viewErr      error

	lastCreate jobs.CreateJobInput
}

func (s *stubJobsService) CreateJob(_ context.Context, input jobs.CreateJobInput) (*jobs.CreateJobResult, error) {
	s.lastCreate = input
	return s.createResult, s.createErr
}

func (s *stubJobsService) GetJob(_ context.Context, _ uuid.UUID) (*jobs.JobView, error) {
	return s.view, s.viewErr
}

func TestCreateJobHandsBackUploadURL(t *testing.T) {
	jobID := uuid.New()
	svc := &stubJobsService{
		createResult: &jobs.CreateJobResult{
			JobID:        jobID,
			UploadURL:    "https://storage.googleapis.com/recolora-uploads/" + jobID.String() + "-cat.jpg?sig=x",
			UploadExpiry: time.Now().Add(15 * time.Minute),
			ObjectKey:    "uploads/" + jobID.String() + "-cat.jpg",
		},
	}

	body := `{"filename":"cat.jpg","content_type":"image/jpeg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CreateJob(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastCreate.Filename != "cat.jpg" {
		t.Fatalf("expected filename cat.jpg, got %q", svc.lastCreate.Filename)
	}

	var envelope struct {
		Data createJobResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.JobID != jobID.String() {
		t.Fatalf("expected job id %s, got %s", jobID, envelope.Data.JobID)
	}
	if envelope.Data.UploadURL == "" {
		t.Fatalf("expected upload url in response")
	}
}

func TestCreateJobRejectsMissingFields(t *testing.T) {
	svc := &stubJobsService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"filename":"cat.jpg"}`))
	rec := httptest.NewRecorder()
	CreateJob(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetJobReportsProgress(t *testing.T) {
	jobID := uuid.New()
	outputURL := "https://storage.googleapis.com/recolora-outputs/" + jobID.String() + "-colorized.jpg?sig=y"
	svc := &stubJobsService{
		view: &jobs.JobView{
			JobID:     jobID,
			Status:    enums.JobStatusDone,
			IsPaid:    true,
			OutputURL: &outputURL,
			CreatedAt: time.Now().Add(-time.Hour),
		},
	}

	rec := getJob(svc, jobID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data jobResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OutputURL == nil {
		t.Fatalf("expected output url for a paid completed job")
	}
}

func TestGetJobUnknownIsNotFound(t *testing.T) {
	svc := &stubJobsService{
		viewErr: pkgerrors.New(pkgerrors.CodeNotFound, "job not found"),
	}

	rec := getJob(svc, uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetJobRejectsMalformedID(t *testing.T) {
	svc := &stubJobsService{}

	rec := getJob(svc, "not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func getJob(svc jobs.Service, jobID string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/api/v1/jobs/{jobId}", GetJob(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
