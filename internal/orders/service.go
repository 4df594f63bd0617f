package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/internal/cart"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/logger"
	"github.com/shoplinehq/shopline-backend/pkg/outbox"
)

// TopicOrderCreated names the background task fired when an order is placed.
const TopicOrderCreated = "order.created"

// OrderCreatedPayload is the outbox payload for TopicOrderCreated.
type OrderCreatedPayload struct {
	OrderID int64 `json:"order_id"`
}

// CustomerInput carries the checkout form fields.
type CustomerInput struct {
	FirstName  string
	LastName   string
	Email      string
	Address    string
	PostalCode string
	City       string
}

// Service turns session carts into persisted orders and tracks their payment
// state.
type Service interface {
	CreateFromCart(ctx context.Context, sessionID string, input CustomerInput) (*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	MarkPaid(ctx context.Context, id int64, stripeID string) (*models.Order, error)
}

type service struct {
	db     *gorm.DB
	repo   *Repository
	cart   cart.Service
	outbox outbox.Enqueuer
	logger *logger.Logger
}

// NewService wires the order service to its collaborators.
func NewService(db *gorm.DB, repo *Repository, cartSvc cart.Service, enqueuer outbox.Enqueuer, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("outbox enqueuer required")
	}
	return &service{db: db, repo: repo, cart: cartSvc, outbox: enqueuer, logger: logg}, nil
}

// CreateFromCart snapshots the session cart into an order. Line items carry
// the cart's recorded unit prices; the coupon discount percentage is copied
// onto the order so later coupon edits cannot change it. The order row, its
// items, and the confirmation-email task commit in one transaction, then the
// session cart is destroyed.
func (s *service) CreateFromCart(ctx context.Context, sessionID string, input CustomerInput) (*models.Order, error) {
	c, err := s.cart.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.cart.Items(ctx, sessionID, c)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	coupon, err := s.cart.Coupon(ctx, c)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Email:      input.Email,
		Address:    input.Address,
		PostalCode: input.PostalCode,
		City:       input.City,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
		order.Discount = coupon.Discount
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.Product.ID,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, order); err != nil {
			return err
		}
		return s.outbox.EnqueueTx(tx, TopicOrderCreated, OrderCreatedPayload{OrderID: order.ID})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	if err := s.cart.Clear(ctx, sessionID); err != nil {
		// The order is already committed; a lingering cart is the lesser
		// problem, so log and move on.
		if s.logger != nil {
			s.logger.Error(ctx, "failed to clear session cart after checkout", err)
		}
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

// MarkPaid flags the order paid and stores the payment reference, then
// returns the refreshed order.
func (s *service) MarkPaid(ctx context.Context, id int64, stripeID string) (*models.Order, error) {
	if err := s.repo.SetPaid(ctx, id, stripeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order paid")
	}
	return s.Get(ctx, id)
}
