package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
)

const maxStoredErrorLen = 1024

// Enqueuer is the write-side surface exposed to request handlers.
type Enqueuer interface {
	Enqueue(ctx context.Context, topic string, payload any) error
	EnqueueTx(tx *gorm.DB, topic string, payload any) error
}

// Repository persists and claims outbox events.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an outbox repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue stores a pending event outside any caller transaction.
func (r *Repository) Enqueue(ctx context.Context, topic string, payload any) error {
	return r.EnqueueTx(r.db.WithContext(ctx), topic, payload)
}

// EnqueueTx stores a pending event inside the caller's transaction so the
// task is only visible if the surrounding state change commits.
func (r *Repository) EnqueueTx(tx *gorm.DB, topic string, payload any) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if topic == "" {
		return fmt.Errorf("topic required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	event := models.OutboxEvent{
		ID:      uuid.New(),
		Topic:   topic,
		Payload: raw,
		Status:  models.OutboxStatusPending,
	}
	return tx.Create(&event).Error
}

// ClaimPending moves up to limit pending events into processing and returns
// them. Single-worker deployment; no row locking is attempted.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ?", models.OutboxStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(events))
		for i := range events {
			ids = append(ids, events[i].ID)
			events[i].Status = models.OutboxStatusProcessing
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id IN ?", ids).
			Update("status", models.OutboxStatusProcessing).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkSent finalizes a delivered event.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.OutboxStatusSent,
			"processed_at": &now,
		}).Error
}

// MarkFailed records a handler failure. The event goes back to pending until
// it exhausts maxAttempts, then parks as failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, cause error) error {
	status := models.OutboxStatusPending
	if attempts >= maxAttempts {
		status = models.OutboxStatusFailed
	}
	var lastError *string
	if cause != nil {
		msg := truncateError(cause.Error())
		lastError = &msg
	}
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

func truncateError(message string) string {
	if len(message) <= maxStoredErrorLen {
		return message
	}
	return message[:maxStoredErrorLen]
}
