package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/pkg/config"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
)

type stubDB struct{}

func (stubDB) Ping(context.Context) error { return nil }

func (stubDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    map[uuid.UUID]error
}

func (s *stubOutboxRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return s.events, nil
}

func (s *stubOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	if s.failed == nil {
		s.failed = make(map[uuid.UUID]error)
	}
	s.failed[id] = err
	return nil
}

type stubPublisher struct {
	messages   []*gcppubsub.Message
	publishErr error
}

func (s *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubResult{err: s.publishErr}
}

type stubResult struct {
	err error
}

func (s stubResult) Get(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "server-id", nil
}

func buildTestService(t *testing.T, repo *stubOutboxRepo, pub *stubPublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "push-worker-test"}),
		DB:         stubDB{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func pushOutboxEvent(t *testing.T, notificationID uuid.UUID) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(notifier.PushEvent{
		NotificationID: notificationID,
		UserID:         uuid.New(),
		Type:           enums.NotificationTypeOrderUpdate,
		Title:          "Order delivered",
		Message:        "Your tiffin has arrived.",
	})
	if err != nil {
		t.Fatalf("marshal push event: %v", err)
	}
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventNotificationPush,
		AggregateType: enums.AggregateNotification,
		AggregateID:   notificationID,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := pushOutboxEvent(t, uuid.New())
	repo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := buildTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.messages))
	}
	if got := pub.messages[0].Attributes["event_type"]; got != string(enums.EventNotificationPush) {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("event must be marked published, got %v", repo.published)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("no failures expected, got %v", repo.failed)
	}
}

func TestProcessBatchMarksFailureOnPublishError(t *testing.T) {
	event := pushOutboxEvent(t, uuid.New())
	repo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{publishErr: errors.New("topic unavailable")}
	svc := buildTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(repo.published) != 0 {
		t.Fatalf("failed event must not be marked published, got %v", repo.published)
	}
	if repo.failed[event.ID] == nil {
		t.Fatal("expected failure to be recorded for retry")
	}
}

func TestProcessBatchRejectsMalformedRows(t *testing.T) {
	event := pushOutboxEvent(t, uuid.New())
	event.EventType = "order.shipped"
	repo := &stubOutboxRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := buildTestService(t, repo, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatal("malformed rows must not reach the publisher")
	}
	if repo.failed[event.ID] == nil {
		t.Fatal("malformed row must be marked failed")
	}
}

func TestProcessBatchEmptyOutbox(t *testing.T) {
	repo := &stubOutboxRepo{}
	svc := buildTestService(t, repo, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("empty outbox must report no work")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	backoff := nextBackoff(base, base, maxBackoff)
	if backoff != time.Second {
		t.Fatalf("expected 1s, got %v", backoff)
	}
	for i := 0; i < 10; i++ {
		backoff = nextBackoff(backoff, base, maxBackoff)
	}
	if backoff != maxBackoff {
		t.Fatalf("backoff must cap at %v, got %v", maxBackoff, backoff)
	}
}
