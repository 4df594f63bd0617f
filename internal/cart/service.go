package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shoplinehq/shopline-backend/internal/catalog"
	"github.com/shoplinehq/shopline-backend/internal/coupons"
	"github.com/shoplinehq/shopline-backend/pkg/db/models"
)

// Item is one reconciled cart line, enriched with its catalog product.
type Item struct {
	Product   models.Product
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Service owns the session cart lifecycle: loading, mutation, the reconciling
// read, and coupon math.
type Service interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int, override bool) (*Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (*Cart, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*Cart, *models.Coupon, error)
	RemoveCoupon(ctx context.Context, sessionID string) (*Cart, error)
	Clear(ctx context.Context, sessionID string) error

	Items(ctx context.Context, sessionID string, c *Cart) ([]Item, error)
	Coupon(ctx context.Context, c *Cart) (*models.Coupon, error)
	Discount(ctx context.Context, c *Cart) (decimal.Decimal, error)
	TotalAfterDiscount(ctx context.Context, c *Cart) (decimal.Decimal, error)
}

type service struct {
	store   SessionStore
	catalog catalog.Service
	coupons coupons.Service
	now     func() time.Time
}

// NewService wires the cart service to its collaborators.
func NewService(store SessionStore, catalogSvc catalog.Service, couponSvc coupons.Service) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	return &service{
		store:   store,
		catalog: catalogSvc,
		coupons: couponSvc,
		now:     time.Now,
	}, nil
}

func (s *service) Load(ctx context.Context, sessionID string) (*Cart, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *service) AddItem(ctx context.Context, sessionID string, productID int64, quantity int, override bool) (*Cart, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Add(product, quantity, override)
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Remove(productID)
	if !c.Dirty() {
		return c, nil
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) ApplyCoupon(ctx context.Context, sessionID, code string) (*Cart, *models.Coupon, error) {
	coupon, err := s.coupons.ApplyByCode(ctx, code, s.now())
	if err != nil {
		return nil, nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	c.ApplyCoupon(coupon.ID)
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, nil, err
	}
	return c, coupon, nil
}

func (s *service) RemoveCoupon(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.RemoveCoupon()
	if !c.Dirty() {
		return c, nil
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// Items is the reconciling read: it batch-fetches the cart's products, prunes
// lines whose product is gone from the catalog (persisting the healed cart
// before anything is returned), then enriches the survivors in insertion
// order. After one full call the persisted cart references no missing
// products.
func (s *service) Items(ctx context.Context, sessionID string, c *Cart) ([]Item, error) {
	products, err := s.catalog.FindByIDs(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Product, len(products))
	known := make(map[int64]bool, len(products))
	for _, product := range products {
		byID[product.ID] = product
		known[product.ID] = true
	}

	if pruned := c.Prune(known); len(pruned) > 0 {
		if err := s.store.Save(ctx, sessionID, c); err != nil {
			return nil, err
		}
	}

	items := make([]Item, 0, len(c.Lines))
	for _, key := range c.orderedKeys() {
		line := c.Lines[key]
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		product, ok := byID[id]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			continue
		}
		items = append(items, Item{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return items, nil
}

// Coupon re-resolves the cart's coupon reference. A missing, inactive, or
// out-of-window coupon yields nil with no error; the reference is weak and
// degrading silently to "no coupon" is the contract.
func (s *service) Coupon(ctx context.Context, c *Cart) (*models.Coupon, error) {
	if c.CouponID == nil {
		return nil, nil
	}
	return s.coupons.GetValid(ctx, *c.CouponID, s.now())
}

// Discount is subtotal x discount-percent for a resolvable coupon, zero
// otherwise. It uses the raw subtotal, so stale lines contribute until a
// reconciling read removes them.
func (s *service) Discount(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	coupon, err := s.Coupon(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}
	if coupon == nil {
		return decimal.Zero, nil
	}
	return c.Subtotal().
		Mul(decimal.NewFromInt(int64(coupon.Discount))).
		Div(decimal.NewFromInt(100)), nil
}

func (s *service) TotalAfterDiscount(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	discount, err := s.Discount(ctx, c)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Subtotal().Sub(discount), nil
}
