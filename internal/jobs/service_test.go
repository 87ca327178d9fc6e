package jobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"gorm.io/gorm"
)

type stubRepo struct {
	created  *models.Job
	found    *models.Job
	findErr  error
	paidIDs  []uuid.UUID
	markPaid bool
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	s.created = job
	return job, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.found, s.findErr
}

func (s *stubRepo) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	s.paidIDs = append(s.paidIDs, id)
	return s.markPaid, nil
}

func (s *stubRepo) UpdateOutput(ctx context.Context, id uuid.UUID, outputURL string, status enums.JobStatus) error {
	return nil
}

type stubSigner struct {
	uploadURL string
	readURL   string
	err       error

	lastKey         string
	lastContentType string
}

func (s *stubSigner) SignedUploadURL(key, contentType string, expiry time.Duration) (string, error) {
	s.lastKey = key
	s.lastContentType = contentType
	return s.uploadURL, s.err
}

func (s *stubSigner) SignedReadURL(key string, expiry time.Duration) (string, error) {
	s.lastKey = key
	return s.readURL, s.err
}

func testService(t *testing.T, repo Repository, signer urlSigner) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, signer, config.GCSConfig{
		BucketName:        "recolora-media",
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
	}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateJobIssuesUploadURL(t *testing.T) {
	repo := &stubRepo{}
	signer := &stubSigner{uploadURL: "https://signed.example/put"}
	svc := testService(t, repo, signer)

	result, err := svc.CreateJob(context.Background(), CreateJobInput{
		Filename:    "old photo.png",
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if result.UploadURL != "https://signed.example/put" {
		t.Fatalf("unexpected upload url %q", result.UploadURL)
	}
	if repo.created == nil {
		t.Fatal("expected job row created")
	}
	if repo.created.Status != enums.JobStatusPending {
		t.Fatalf("expected pending job, got %s", repo.created.Status)
	}
	if repo.created.IsPaid {
		t.Fatal("new jobs must be unpaid")
	}
	if !strings.HasPrefix(signer.lastKey, "uploads/") {
		t.Fatalf("upload key %q not under uploads/", signer.lastKey)
	}
	if signer.lastContentType != "image/png" {
		t.Fatalf("content type not bound, got %q", signer.lastContentType)
	}
}

func TestCreateJobRejectsUnknownContentType(t *testing.T) {
	svc := testService(t, &stubRepo{}, &stubSigner{})

	_, err := svc.CreateJob(context.Background(), CreateJobInput{
		Filename:    "archive.zip",
		ContentType: "application/zip",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestGetJobWithheldOutputWhenUnpaid(t *testing.T) {
	jobID := uuid.New()
	output := "outputs/" + jobID.String() + "-colorized.jpg"
	repo := &stubRepo{found: &models.Job{
		ID:        jobID,
		Status:    enums.JobStatusDone,
		IsPaid:    false,
		OutputURL: &output,
	}}
	signer := &stubSigner{readURL: "https://signed.example/get"}
	svc := testService(t, repo, signer)

	view, err := svc.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.OutputURL != nil {
		t.Fatal("unpaid job must not expose an output url")
	}
}

func TestGetJobSignsOutputWhenPaidAndDone(t *testing.T) {
	jobID := uuid.New()
	repo := &stubRepo{found: &models.Job{
		ID:     jobID,
		Status: enums.JobStatusDone,
		IsPaid: true,
	}}
	signer := &stubSigner{readURL: "https://signed.example/get"}
	svc := testService(t, repo, signer)

	view, err := svc.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.OutputURL == nil || *view.OutputURL != "https://signed.example/get" {
		t.Fatalf("expected signed output url, got %v", view.OutputURL)
	}
	if !strings.HasPrefix(signer.lastKey, "outputs/") {
		t.Fatalf("output key %q not under outputs/", signer.lastKey)
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc := testService(t, &stubRepo{found: nil}, &stubSigner{})

	_, err := svc.GetJob(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestGetJobSignerFailureIsSoft(t *testing.T) {
	jobID := uuid.New()
	repo := &stubRepo{found: &models.Job{ID: jobID, Status: enums.JobStatusDone, IsPaid: true}}
	signer := &stubSigner{err: errors.New("signer down")}
	svc := testService(t, repo, signer)

	view, err := svc.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if view.OutputURL != nil {
		t.Fatal("expected no output url when signing fails")
	}
	if view.Status != enums.JobStatusDone {
		t.Fatalf("status must still be reported, got %s", view.Status)
	}
}
