package cart

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
)

// Line is one product's entry in a session cart. UnitPrice is captured as
// exact decimal text when the product is first added; later catalog price
// changes do not touch an open cart.
type Line struct {
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"price"`
	Position  int    `json:"pos"`
}

// Cart is the per-session cart state as it round-trips through the session
// store. Lines are keyed by the product id's string form; Position preserves
// insertion order across (de)serialization. The coupon is held by id only and
// re-resolved on every read.
type Cart struct {
	Lines    map[string]*Line `json:"lines"`
	CouponID *int64           `json:"coupon_id,omitempty"`

	dirty bool
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Lines: map[string]*Line{}}
}

// Add records quantity units of product. A first add pins the line's unit
// price to the product's current price. With override the quantity is set
// verbatim, otherwise it accumulates. Quantity is taken as given; range
// checks belong to the caller.
func (c *Cart) Add(product *models.Product, quantity int, override bool) {
	if product == nil {
		return
	}
	key := lineKey(product.ID)
	line, ok := c.Lines[key]
	if !ok {
		line = &Line{
			UnitPrice: product.Price.String(),
			Position:  c.nextPosition(),
		}
		c.Lines[key] = line
	}
	if override {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
	c.dirty = true
}

// Remove drops the line for productID. Removing an absent line is a no-op.
func (c *Cart) Remove(productID int64) {
	key := lineKey(productID)
	if _, ok := c.Lines[key]; !ok {
		return
	}
	delete(c.Lines, key)
	c.dirty = true
}

// Prune drops every line whose product id is not in known and returns the ids
// removed, in no particular order. Pruning marks the cart dirty so the caller
// knows to persist it.
func (c *Cart) Prune(known map[int64]bool) []int64 {
	var pruned []int64
	for key := range c.Lines {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			// Unparseable keys are dropped but have no id to report.
			delete(c.Lines, key)
			c.dirty = true
			continue
		}
		if !known[id] {
			delete(c.Lines, key)
			pruned = append(pruned, id)
			c.dirty = true
		}
	}
	return pruned
}

// ItemCount sums the stored quantities. It reads the raw lines, so stale
// entries still count until the next reconciling read prunes them.
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Subtotal sums unit_price x quantity over the raw stored lines, without
// touching the catalog. Same staleness caveat as ItemCount.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// ApplyCoupon stores a weak reference to the coupon.
func (c *Cart) ApplyCoupon(couponID int64) {
	c.CouponID = &couponID
	c.dirty = true
}

// RemoveCoupon detaches any applied coupon.
func (c *Cart) RemoveCoupon() {
	if c.CouponID == nil {
		return
	}
	c.CouponID = nil
	c.dirty = true
}

// ProductIDs returns the line product ids in insertion order.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Lines))
	for _, key := range c.orderedKeys() {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dirty reports whether the cart holds unpersisted mutations.
func (c *Cart) Dirty() bool {
	return c.dirty
}

func (c *Cart) markPersisted() {
	c.dirty = false
}

func (c *Cart) orderedKeys() []string {
	keys := make([]string, 0, len(c.Lines))
	for key := range c.Lines {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.Lines[keys[i]].Position < c.Lines[keys[j]].Position
	})
	return keys
}

func (c *Cart) nextPosition() int {
	next := 0
	for _, line := range c.Lines {
		if line.Position >= next {
			next = line.Position + 1
		}
	}
	return next
}

func lineKey(productID int64) string {
	return strconv.FormatInt(productID, 10)
}
