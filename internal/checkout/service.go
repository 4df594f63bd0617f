package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/shoplinehq/shopline-backend/internal/orders"
	"github.com/shoplinehq/shopline-backend/pkg/config"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

var centsPerUnit = decimal.NewFromInt(100)

// Session is the payment redirect handed back to the storefront.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Service creates hosted payment sessions for unpaid orders.
type Service interface {
	CreateSession(ctx context.Context, orderID int64) (*Session, error)
}

type service struct {
	stripe     StripeCheckoutClient
	orders     orders.Service
	currency   string
	successURL string
	cancelURL  string
}

// NewService wires the checkout service to Stripe and the order store.
func NewService(stripeClient StripeCheckoutClient, orderSvc orders.Service, cfg config.StripeConfig) (Service, error) {
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, fmt.Errorf("checkout redirect urls required")
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}
	return &service{
		stripe:     stripeClient,
		orders:     orderSvc,
		currency:   currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}, nil
}

// CreateSession builds a hosted payment session for the order: one line item
// per order line, amounts in the currency's minor unit, the order id as the
// client reference so the payment webhook can find its way back. A snapshotted
// coupon becomes a single-use percent-off discount on the session.
func (s *service) CreateSession(ctx context.Context, orderID int64) (*Session, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Paid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no line items")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", order.ID)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
	}
	for _, item := range order.Items {
		name := fmt.Sprintf("product %d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				UnitAmount: stripe.Int64(item.Price.Mul(centsPerUnit).IntPart()),
				Currency:   stripe.String(s.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	if order.Discount > 0 {
		couponName := "order discount"
		if order.Coupon != nil {
			couponName = order.Coupon.Code
		}
		stripeCoupon, err := s.stripe.CreateCoupon(ctx, &stripe.CouponParams{
			Name:       stripe.String(couponName),
			PercentOff: stripe.Float64(float64(order.Discount)),
			Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment discount")
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(stripeCoupon.ID)},
		}
	}

	checkoutSession, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment session")
	}
	return &Session{ID: checkoutSession.ID, URL: checkoutSession.URL}, nil
}
