package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/db/models"
	"github.com/rahulnegi20/recolora-backend/pkg/enums"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox"
)

type publisherFixture struct {
	db      *gorm.DB
	repo    *outbox.Repository
	dlq     *outbox.DLQRepository
	pub     *stubPublisher
	service *Service
}

func setupPublisher(t *testing.T) *publisherFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
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
);`).Error)
	require.NoError(t, db.Exec(`
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
);`).Error)

	repo := outbox.NewRepository(db)
	dlq := outbox.NewDLQRepository(db)
	pub := &stubPublisher{}

	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3

	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:               &testDBClient{db: db},
		PubSub:           &stubPubSub{},
		Repository:       repo,
		DLQRepository:    dlq,
		PublisherFactory: func() publisher { return pub },
	})
	require.NoError(t, err)

	return &publisherFixture{db: db, repo: repo, dlq: dlq, pub: pub, service: service}
}

func (f *publisherFixture) insertEvent(t *testing.T, payload json.RawMessage, attempts int) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentCaptured,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
	require.NoError(t, f.db.Create(&row).Error)
	return row
}

func envelopePayload(t *testing.T) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"orderId":"x"}`),
	}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return raw
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	f := setupPublisher(t)
	first := f.insertEvent(t, envelopePayload(t), 0)
	second := f.insertEvent(t, envelopePayload(t), 0)

	processed, err := f.service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Len(t, f.pub.messages, 2)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		var row models.OutboxEvent
		require.NoError(t, f.db.First(&row, "id = ?", id).Error)
		assert.NotNil(t, row.PublishedAt)
	}

	attrs := f.pub.messages[0].Attributes
	assert.Equal(t, string(enums.EventPaymentCaptured), attrs["event_type"])
	assert.NotEmpty(t, attrs["event_id"])
}

func TestProcessBatchEmptyIsQuiet(t *testing.T) {
	f := setupPublisher(t)

	processed, err := f.service.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.pub.messages)
}

func TestPublishFailureIncrementsAttempt(t *testing.T) {
	f := setupPublisher(t)
	event := f.insertEvent(t, envelopePayload(t), 0)
	f.pub.err = errors.New("deadline exceeded")

	_, err := f.service.processBatch(context.Background())
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, f.db.First(&row, "id = ?", event.ID).Error)
	assert.Nil(t, row.PublishedAt)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "deadline exceeded")

	var dlqCount int64
	require.NoError(t, f.db.Model(&models.OutboxDLQ{}).Count(&dlqCount).Error)
	assert.Zero(t, dlqCount)
}

func TestMaxAttemptsMovesEventToDLQ(t *testing.T) {
	f := setupPublisher(t)
	event := f.insertEvent(t, envelopePayload(t), 2)
	f.pub.err = errors.New("topic gone")

	_, err := f.service.processBatch(context.Background())
	require.NoError(t, err)

	entry, err := f.dlq.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "max publish attempts")

	// The terminal event must not be fetched again.
	f.pub.err = nil
	f.pub.messages = nil
	processed, err := f.service.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestUndecodablePayloadMovesEventToDLQ(t *testing.T) {
	f := setupPublisher(t)
	event := f.insertEvent(t, json.RawMessage(`{"version":1}`), 0)

	_, err := f.service.processBatch(context.Background())
	require.NoError(t, err)

	entry, err := f.dlq.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Empty(t, f.pub.messages)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

type testDBClient struct {
	db *gorm.DB
}

func (c *testDBClient) Ping(context.Context) error { return nil }

func (c *testDBClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.db.WithContext(ctx).Transaction(fn)
}

type stubPubSub struct{}

func (s *stubPubSub) Ping(context.Context) error              { return nil }
func (s *stubPubSub) PaymentsPublisher() *gcppubsub.Publisher { return nil }

type stubPublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	if p.err != nil {
		return &stubResult{err: p.err}
	}
	p.messages = append(p.messages, msg)
	return &stubResult{id: uuid.NewString()}
}

type stubResult struct {
	id  string
	err error
}

func (r *stubResult) Get(context.Context) (string, error) { return r.id, r.err }
