package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
)

func testProduct(id int64, price string) *models.Product {
	return &models.Product{
		ID:    id,
		Name:  "product",
		Price: decimal.RequireFromString(price),
	}
}

func TestAddAccumulatesAndOverrides(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 2, false)
	c.Add(testProduct(1, "10.00"), 3, false)
	if got := c.ItemCount(); got != 5 {
		t.Fatalf("item count after accumulate: got %d, want 5", got)
	}

	c.Add(testProduct(1, "10.00"), 1, true)
	if got := c.ItemCount(); got != 1 {
		t.Fatalf("item count after override: got %d, want 1", got)
	}
}

func TestAddPinsPriceAtFirstAdd(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	c.Add(testProduct(1, "12.50"), 1, false)

	if got := c.Lines["1"].UnitPrice; got != "10" {
		t.Fatalf("unit price: got %q, want the first-add price", got)
	}
	if !c.Subtotal().Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("subtotal: got %s, want 20.00", c.Subtotal())
	}
}

func TestAddAcceptsQuantityVerbatim(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), -3, true)
	if got := c.ItemCount(); got != -3 {
		t.Fatalf("item count: got %d, want -3", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	c.Remove(1)
	c.Remove(1)
	c.Remove(42)
	if got := c.ItemCount(); got != 0 {
		t.Fatalf("item count: got %d, want 0", got)
	}
}

func TestSubtotalUsesRawLines(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 2, false)
	c.Add(testProduct(2, "5.00"), 1, false)

	if got := c.ItemCount(); got != 3 {
		t.Fatalf("item count: got %d, want 3", got)
	}
	if !c.Subtotal().Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("subtotal: got %s, want 25.00", c.Subtotal())
	}
}

func TestPruneDropsUnknownLines(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	c.Add(testProduct(2, "5.00"), 1, false)
	c.markPersisted()

	pruned := c.Prune(map[int64]bool{1: true})
	if len(pruned) != 1 || pruned[0] != 2 {
		t.Fatalf("pruned ids: got %v, want [2]", pruned)
	}
	if !c.Dirty() {
		t.Fatal("pruning must mark the cart dirty")
	}
	if _, ok := c.Lines["2"]; ok {
		t.Fatal("pruned line still present")
	}
}

func TestPruneDropsCorruptKeyWithoutReportingIt(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	c.Lines["garbage"] = &Line{Quantity: 1, UnitPrice: "1.00"}
	c.markPersisted()

	pruned := c.Prune(map[int64]bool{1: true})
	if len(pruned) != 0 {
		t.Fatalf("pruned ids: got %v, want none", pruned)
	}
	if _, ok := c.Lines["garbage"]; ok {
		t.Fatal("corrupt line still present")
	}
	if !c.Dirty() {
		t.Fatal("dropping the corrupt line must mark the cart dirty")
	}
}

func TestPruneNoopWhenAllKnown(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	c.markPersisted()

	if pruned := c.Prune(map[int64]bool{1: true}); pruned != nil {
		t.Fatalf("pruned ids: got %v, want none", pruned)
	}
	if c.Dirty() {
		t.Fatal("prune without removals must not dirty the cart")
	}
}

func TestProductIDsPreserveInsertionOrder(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testProduct(9, "1.00"), 1, false)
	c.Add(testProduct(3, "1.00"), 1, false)
	c.Add(testProduct(7, "1.00"), 1, false)
	c.Remove(3)
	c.Add(testProduct(5, "1.00"), 1, false)

	got := c.ProductIDs()
	want := []int64{9, 7, 5}
	if len(got) != len(want) {
		t.Fatalf("product ids: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("product ids: got %v, want %v", got, want)
		}
	}
}

func TestCouponReferenceLifecycle(t *testing.T) {
	t.Parallel()

	c := New()
	c.ApplyCoupon(7)
	if c.CouponID == nil || *c.CouponID != 7 {
		t.Fatalf("coupon id: got %v, want 7", c.CouponID)
	}
	c.RemoveCoupon()
	if c.CouponID != nil {
		t.Fatal("coupon reference not cleared")
	}
	c.markPersisted()
	c.RemoveCoupon()
	if c.Dirty() {
		t.Fatal("removing an absent coupon must not dirty the cart")
	}
}
