package models

import (
	"time"

	"github.com/google/uuid"
)

// Outbox event lifecycle.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusSent       = "sent"
	OutboxStatusFailed     = "failed"
)

// OutboxEvent is a queued background task, written in the same transaction as
// the state change that produced it and drained by the worker process.
type OutboxEvent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Topic       string     `gorm:"column:topic;not null;index" json:"topic"`
	Payload     []byte     `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status      string     `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError   *string    `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}
