package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	dlq := `
CREATE TABLE IF NOT EXISTS outbox_dlqs (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(dlq).Error)
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, repo *Repository, eventType enums.OutboxEventType, aggregateID uuid.UUID) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Payload:       json.RawMessage(`{"version":1}`),
	}
	require.NoError(t, repo.Insert(db, row))
	return row
}

func TestFetchUnpublishedSkipsPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	first := insertEvent(t, db, repo, enums.EventPaymentCaptured, uuid.New())
	second := insertEvent(t, db, repo, enums.EventJobPaid, uuid.New())

	require.NoError(t, repo.MarkPublished(first.ID))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := insertEvent(t, db, repo, enums.EventPaymentCaptured, uuid.New())

	require.NoError(t, repo.MarkFailed(row.ID, errors.New("publish timeout")))
	require.NoError(t, repo.MarkFailed(row.ID, errors.New("publish timeout")))

	var stored models.OutboxEvent
	require.NoError(t, db.Where("id = ?", row.ID).First(&stored).Error)
	assert.Equal(t, 2, stored.AttemptCount)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "publish timeout", *stored.LastError)
	assert.Nil(t, stored.PublishedAt)
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc := NewService(repo, logg)

	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventPaymentCaptured,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          map[string]any{"orderId": orderID.String()},
		Version:       1,
	}

	ctx := context.Background()
	require.NoError(t, svc.EmitIfNotExists(ctx, db, event))
	require.NoError(t, svc.EmitIfNotExists(ctx, db, event))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", orderID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	jobID := uuid.New()
	require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventJobPaid,
		AggregateType: enums.AggregateJob,
		AggregateID:   jobID,
		Data:          map[string]any{"jobId": jobID.String()},
		Version:       1,
	}))

	var stored models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", jobID).First(&stored).Error)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(stored.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())
}

func TestDLQInsertTruncatesError(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)

	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)

	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventPaymentCaptured,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}
	require.NoError(t, repo.InsertTx(db, entry))

	stored, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)
}
