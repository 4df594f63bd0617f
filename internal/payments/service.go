package payments

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/shoplinehq/shopline-backend/internal/orders"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
	"github.com/shoplinehq/shopline-backend/pkg/outbox"
)

// TopicPaymentCompleted names the background task fired when a payment lands.
const TopicPaymentCompleted = "payment.completed"

// PaymentCompletedPayload is the outbox payload for TopicPaymentCompleted.
type PaymentCompletedPayload struct {
	OrderID int64 `json:"order_id"`
}

const (
	webhookGuardPrefix = "shop:webhook:"
	webhookGuardTTL    = 24 * time.Hour
)

type purchaseRecorder interface {
	RecordPurchase(ctx context.Context, productIDs []int64) error
}

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// ServiceParams collects the payment webhook service dependencies.
type ServiceParams struct {
	Orders      orders.Service
	Recommender purchaseRecorder
	Outbox      outbox.Enqueuer
	Guard       guardStore
	Logger      *logger.Logger
}

// Service applies confirmed payments: it marks the order paid, feeds the
// purchased product set into the recommender, and schedules the invoice
// email.
type Service struct {
	orders      orders.Service
	recommender purchaseRecorder
	outbox      outbox.Enqueuer
	guard       guardStore
	logger      *logger.Logger
}

// NewService wires the payment webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Recommender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "recommender required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox enqueuer required")
	}
	return &Service{
		orders:      params.Orders,
		recommender: params.Recommender,
		outbox:      params.Outbox,
		guard:       params.Guard,
		logger:      params.Logger,
	}, nil
}

// HandleEvent processes one verified Stripe event. Events that are not a
// completed, paid checkout session are acknowledged and dropped. A replayed
// event id is also acknowledged without reapplying its side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}
	if session.Mode != stripe.CheckoutSessionModePayment {
		return nil
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil
	}

	orderID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid client reference id")
	}

	if s.guard != nil && event.ID != "" {
		fresh, err := s.guard.SetNX(ctx, webhookGuardPrefix+event.ID, orderID, webhookGuardTTL)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking webhook replay guard")
		}
		if !fresh {
			if s.logger != nil {
				s.logger.Info(ctx, "dropping replayed stripe event")
			}
			return nil
		}
	}

	order, err := s.orders.MarkPaid(ctx, orderID, paymentReference(&session))
	if err != nil {
		// Stripe redelivers on a non-2xx response; the guard key must not
		// survive a failed application or the retry would be dropped.
		s.releaseGuard(ctx, event.ID)
		return err
	}

	// Scores are advisory; a scoring-store hiccup must not fail the webhook.
	if err := s.recommender.RecordPurchase(ctx, order.ProductIDs()); err != nil {
		if s.logger != nil {
			s.logger.Error(ctx, "failed to record co-purchase scores", err)
		}
	}

	if err := s.outbox.Enqueue(ctx, TopicPaymentCompleted, PaymentCompletedPayload{OrderID: order.ID}); err != nil {
		s.releaseGuard(ctx, event.ID)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scheduling invoice email")
	}
	return nil
}

func (s *Service) releaseGuard(ctx context.Context, eventID string) {
	if s.guard == nil || eventID == "" {
		return
	}
	if err := s.guard.Del(context.WithoutCancel(ctx), webhookGuardPrefix+eventID); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to release webhook replay guard", err)
	}
}

func paymentReference(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return session.PaymentIntent.ID
	}
	return session.ID
}
