package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/shoplinehq/shopline-backend/internal/orders"
	"github.com/shoplinehq/shopline-backend/pkg/config"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

type stubStripeClient struct {
	sessionParams *stripe.CheckoutSessionParams
	couponParams  *stripe.CouponParams
	sessionErr    error
}

func (s *stubStripeClient) CreateSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.sessionErr != nil {
		return nil, s.sessionErr
	}
	s.sessionParams = params
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}, nil
}

func (s *stubStripeClient) CreateCoupon(_ context.Context, params *stripe.CouponParams) (*stripe.Coupon, error) {
	s.couponParams = params
	return &stripe.Coupon{ID: "co_test_456"}, nil
}

type stubOrderService struct {
	orders.Service
	order *models.Order
	err   error
}

func (s *stubOrderService) Get(_ context.Context, _ int64) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func testConfig() config.StripeConfig {
	return config.StripeConfig{
		Currency:   "eur",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	}
}

func unpaidOrder() *models.Order {
	return &models.Order{
		ID: 42,
		Items: []models.OrderItem{
			{
				ProductID: 1,
				Product:   &models.Product{ID: 1, Name: "tea"},
				Price:     decimal.RequireFromString("10.00"),
				Quantity:  2,
			},
			{
				ProductID: 2,
				Product:   &models.Product{ID: 2, Name: "coffee"},
				Price:     decimal.RequireFromString("5.50"),
				Quantity:  1,
			},
		},
	}
}

func TestCreateSessionBuildsLineItems(t *testing.T) {
	t.Parallel()

	stripeClient := &stubStripeClient{}
	svc, err := NewService(stripeClient, &stubOrderService{order: unpaidOrder()}, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	session, err := svc.CreateSession(context.Background(), 42)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_test_123" || session.URL == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	params := stripeClient.sessionParams
	if got := stripe.StringValue(params.ClientReferenceID); got != "42" {
		t.Fatalf("client reference id: got %q, want 42", got)
	}
	if got := stripe.StringValue(params.Mode); got != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("mode: got %q", got)
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("line items: got %d, want 2", len(params.LineItems))
	}
	first := params.LineItems[0]
	if got := stripe.Int64Value(first.PriceData.UnitAmount); got != 1000 {
		t.Fatalf("unit amount: got %d, want 1000", got)
	}
	if got := stripe.StringValue(first.PriceData.Currency); got != "eur" {
		t.Fatalf("currency: got %q, want eur", got)
	}
	if got := stripe.StringValue(first.PriceData.ProductData.Name); got != "tea" {
		t.Fatalf("product name: got %q, want tea", got)
	}
	second := params.LineItems[1]
	if got := stripe.Int64Value(second.PriceData.UnitAmount); got != 550 {
		t.Fatalf("unit amount: got %d, want 550", got)
	}
	if params.Discounts != nil {
		t.Fatal("no discount expected without a coupon")
	}
	if stripeClient.couponParams != nil {
		t.Fatal("no stripe coupon should be created without a discount")
	}
}

func TestCreateSessionAttachesCouponDiscount(t *testing.T) {
	t.Parallel()

	order := unpaidOrder()
	order.Discount = 10
	order.Coupon = &models.Coupon{Code: "TENOFF"}

	stripeClient := &stubStripeClient{}
	svc, err := NewService(stripeClient, &stubOrderService{order: order}, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.CreateSession(context.Background(), 42); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if got := stripe.Float64Value(stripeClient.couponParams.PercentOff); got != 10 {
		t.Fatalf("percent off: got %v, want 10", got)
	}
	if got := stripe.StringValue(stripeClient.couponParams.Duration); got != string(stripe.CouponDurationOnce) {
		t.Fatalf("duration: got %q", got)
	}
	if len(stripeClient.sessionParams.Discounts) != 1 {
		t.Fatal("discount not attached to session")
	}
	if got := stripe.StringValue(stripeClient.sessionParams.Discounts[0].Coupon); got != "co_test_456" {
		t.Fatalf("discount coupon: got %q", got)
	}
}

func TestCreateSessionRejectsPaidOrder(t *testing.T) {
	t.Parallel()

	order := unpaidOrder()
	order.Paid = true
	svc, err := NewService(&stubStripeClient{}, &stubOrderService{order: order}, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CreateSession(context.Background(), 42)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateSessionPropagatesOrderLookup(t *testing.T) {
	t.Parallel()

	stub := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc, err := NewService(&stubStripeClient{}, stub, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CreateSession(context.Background(), 404)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
