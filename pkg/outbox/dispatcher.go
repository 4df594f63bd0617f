package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplinehq/shopline-backend/pkg/config"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
)

// Handler processes one event payload. Returning an error requeues the event
// until its attempts are exhausted.
type Handler func(ctx context.Context, payload json.RawMessage) error

type claimRepo interface {
	ClaimPending(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, cause error) error
}

// Dispatcher polls the outbox table and fans events out to topic handlers.
type Dispatcher struct {
	repo        claimRepo
	handlers    map[string]Handler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logg        *logger.Logger
}

// NewDispatcher builds a dispatcher from the outbox config.
func NewDispatcher(repo claimRepo, cfg config.OutboxConfig, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		repo:        repo,
		handlers:    map[string]Handler{},
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logg:        logg,
	}, nil
}

// Register binds a handler to a topic. Last registration wins.
func (d *Dispatcher) Register(topic string, handler Handler) {
	if topic == "" || handler == nil {
		return
	}
	d.handlers[topic] = handler
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil && d.logg != nil {
				d.logg.Error(ctx, "outbox drain failed", err)
			}
		}
	}
}

// DrainOnce claims one batch and dispatches it.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	events, err := d.repo.ClaimPending(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("claim pending: %w", err)
	}

	for _, event := range events {
		d.dispatch(ctx, event)
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event models.OutboxEvent) {
	handler, ok := d.handlers[event.Topic]
	if !ok {
		err := fmt.Errorf("no handler for topic %q", event.Topic)
		if markErr := d.repo.MarkFailed(ctx, event.ID, d.maxAttempts, d.maxAttempts, err); markErr != nil && d.logg != nil {
			d.logg.Error(ctx, "outbox mark failed", markErr)
		}
		return
	}

	if err := handler(ctx, event.Payload); err != nil {
		if d.logg != nil {
			fields := d.logg.WithFields(ctx, map[string]any{"topic": event.Topic, "event_id": event.ID.String()})
			d.logg.Error(fields, "outbox handler failed", err)
		}
		if markErr := d.repo.MarkFailed(ctx, event.ID, event.Attempts+1, d.maxAttempts, err); markErr != nil && d.logg != nil {
			d.logg.Error(ctx, "outbox mark failed", markErr)
		}
		return
	}

	if err := d.repo.MarkSent(ctx, event.ID); err != nil && d.logg != nil {
		d.logg.Error(ctx, "outbox mark sent", err)
	}
}
