package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/internal/cart"
	"github.com/shoplinehq/shopline-backend/internal/catalog"
	"github.com/shoplinehq/shopline-backend/internal/coupons"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
	"github.com/shoplinehq/shopline-backend/pkg/outbox"
	"github.com/shoplinehq/shopline-backend/pkg/redis"
)

type orderFixture struct {
	svc  Service
	cart cart.Service
	db   *gorm.DB
}

type fakeSessionClient struct {
	values map[string]string
}

func (f *fakeSessionClient) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeSessionClient) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return fmt.Errorf("unexpected value type %T", value)
	}
	return nil
}

func (f *fakeSessionClient) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeSessionClient) SessionKey(sessionID string) string {
	return "shop:session:" + sessionID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	if err != nil {
		t.Fatalf("coupon service: %v", err)
	}
	store, err := cart.NewRedisStore(&fakeSessionClient{values: map[string]string{}}, time.Hour)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	cartSvc, err := cart.NewService(store, catalogSvc, couponSvc)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	svc, err := NewService(conn, NewRepository(conn), cartSvc, outbox.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	return &orderFixture{svc: svc, cart: cartSvc, db: conn}
}

func (f *orderFixture) createProduct(t *testing.T, name, price string) *models.Product {
	t.Helper()
	category := &models.Category{Name: "Drinks", Slug: "drinks-" + uuid.NewString()}
	if err := f.db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	product := &models.Product{
		CategoryID: category.ID,
		Name:       name,
		Slug:       name + "-" + uuid.NewString(),
		Price:      decimal.RequireFromString(price),
		Available:  true,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func testCustomer() CustomerInput {
	return CustomerInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "12 Analytical Way",
		PostalCode: "10115",
		City:       "Berlin",
	}
}

func TestCreateFromCartSnapshotsLinesAndClearsCart(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	tea := f.createProduct(t, "tea", "10.00")
	coffee := f.createProduct(t, "coffee", "5.00")

	if _, err := f.cart.AddItem(ctx, "sid", tea.ID, 2, false); err != nil {
		t.Fatalf("add tea: %v", err)
	}
	if _, err := f.cart.AddItem(ctx, "sid", coffee.ID, 1, false); err != nil {
		t.Fatalf("add coffee: %v", err)
	}

	order, err := f.svc.CreateFromCart(ctx, "sid", testCustomer())
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}
	if order.ID == 0 {
		t.Fatal("order id not assigned")
	}
	if len(order.Items) != 2 {
		t.Fatalf("order items: got %d, want 2", len(order.Items))
	}
	if !order.Total().Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("order total: got %s, want 25.00", order.Total())
	}

	// The cart is destroyed once the order commits.
	c, err := f.cart.Load(ctx, "sid")
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if got := c.ItemCount(); got != 0 {
		t.Fatalf("cart item count after checkout: got %d, want 0", got)
	}
}

func TestCreateFromCartEnqueuesConfirmationTask(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	tea := f.createProduct(t, "tea", "10.00")

	if _, err := f.cart.AddItem(ctx, "sid", tea.ID, 1, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.svc.CreateFromCart(ctx, "sid", testCustomer())
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}

	var events []models.OutboxEvent
	if err := f.db.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("outbox events: got %d, want 1", len(events))
	}
	if events[0].Topic != TopicOrderCreated {
		t.Fatalf("topic: got %q, want %q", events[0].Topic, TopicOrderCreated)
	}
	var payload OrderCreatedPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.OrderID != order.ID {
		t.Fatalf("payload order id: got %d, want %d", payload.OrderID, order.ID)
	}
}

func TestCreateFromCartSnapshotsCouponDiscount(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	tea := f.createProduct(t, "tea", "10.00")
	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:      "TENOFF",
		ValidFrom: now.Add(-time.Hour),
		ValidTo:   now.Add(time.Hour),
		Discount:  10,
		Active:    true,
	}
	if err := f.db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	if _, err := f.cart.AddItem(ctx, "sid", tea.ID, 2, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := f.cart.ApplyCoupon(ctx, "sid", "TENOFF"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	order, err := f.svc.CreateFromCart(ctx, "sid", testCustomer())
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}
	if order.Discount != 10 {
		t.Fatalf("discount snapshot: got %d, want 10", order.Discount)
	}
	if !order.Total().Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("order total: got %s, want 18.00", order.Total())
	}

	// The snapshot must survive coupon edits after checkout.
	if err := f.db.Model(&models.Coupon{}).Where("id = ?", coupon.ID).Update("discount", 50).Error; err != nil {
		t.Fatalf("edit coupon: %v", err)
	}
	reloaded, err := f.svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if !reloaded.Total().Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("total after coupon edit: got %s, want 18.00", reloaded.Total())
	}
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)

	_, err := f.svc.CreateFromCart(context.Background(), "sid", testCustomer())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)
	ctx := context.Background()
	tea := f.createProduct(t, "tea", "10.00")

	if _, err := f.cart.AddItem(ctx, "sid", tea.ID, 1, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	order, err := f.svc.CreateFromCart(ctx, "sid", testCustomer())
	if err != nil {
		t.Fatalf("create from cart: %v", err)
	}

	paid, err := f.svc.MarkPaid(ctx, order.ID, "pi_123")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.Paid || paid.StripeID != "pi_123" {
		t.Fatalf("order not marked paid: %+v", paid)
	}
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	t.Parallel()

	f := newOrderFixture(t)

	_, err := f.svc.MarkPaid(context.Background(), 404, "pi_123")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
