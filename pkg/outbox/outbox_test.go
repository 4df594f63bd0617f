package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/pkg/config"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(conn)
}

func TestEnqueueAndClaim(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Enqueue(ctx, "order.created", map[string]any{"order_id": 7}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	events, err := repo.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Topic != "order.created" {
		t.Fatalf("unexpected topic: %s", events[0].Topic)
	}

	// A second claim sees nothing: the event is processing.
	again, err := repo.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("claim again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no claimable events, got %d", len(again))
	}
}

func TestDispatcherMarksSentOnSuccess(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Enqueue(ctx, "order.created", map[string]any{"order_id": 7}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dispatcher, err := NewDispatcher(repo, config.OutboxConfig{BatchSize: 10, MaxAttempts: 3}, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	var got struct {
		OrderID int64 `json:"order_id"`
	}
	dispatcher.Register("order.created", func(ctx context.Context, payload json.RawMessage) error {
		return json.Unmarshal(payload, &got)
	})

	if err := dispatcher.DrainOnce(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if got.OrderID != 7 {
		t.Fatalf("unexpected payload: %+v", got)
	}

	var event models.OutboxEvent
	if err := repo.db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Status != models.OutboxStatusSent {
		t.Fatalf("expected sent, got %s", event.Status)
	}
	if event.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
}

func TestDispatcherRequeuesUntilAttemptsExhausted(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Enqueue(ctx, "payment.completed", map[string]any{"order_id": 9}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dispatcher, err := NewDispatcher(repo, config.OutboxConfig{BatchSize: 10, MaxAttempts: 2}, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	dispatcher.Register("payment.completed", func(ctx context.Context, payload json.RawMessage) error {
		return errors.New("smtp unavailable")
	})

	// First failure requeues.
	if err := dispatcher.DrainOnce(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	var event models.OutboxEvent
	if err := repo.db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Status != models.OutboxStatusPending {
		t.Fatalf("expected pending after first failure, got %s", event.Status)
	}
	if event.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", event.Attempts)
	}
	if event.LastError == nil {
		t.Fatal("expected last_error to be recorded")
	}

	// Second failure parks the event.
	if err := dispatcher.DrainOnce(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := repo.db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Status != models.OutboxStatusFailed {
		t.Fatalf("expected failed, got %s", event.Status)
	}
}

func TestDispatcherParksUnroutableTopic(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Enqueue(ctx, "unknown.topic", map[string]any{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	dispatcher, err := NewDispatcher(repo, config.OutboxConfig{BatchSize: 10, MaxAttempts: 3}, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := dispatcher.DrainOnce(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	var event models.OutboxEvent
	if err := repo.db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Status != models.OutboxStatusFailed {
		t.Fatalf("expected failed, got %s", event.Status)
	}
}
