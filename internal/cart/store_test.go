package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shoplinehq/shopline-backend/pkg/redis"
)

type fakeSessionClient struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeSessionClient() *fakeSessionClient {
	return &fakeSessionClient{
		values: map[string]string{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeSessionClient) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeSessionClient) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return fmt.Errorf("unexpected value type %T", value)
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeSessionClient) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		delete(f.ttls, key)
	}
	return nil
}

func (f *fakeSessionClient) SessionKey(sessionID string) string {
	return "shop:session:" + sessionID
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	client := newFakeSessionClient()
	store, err := NewRedisStore(client, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	c := New()
	c.Add(testProduct(1, "10.00"), 2, false)
	c.ApplyCoupon(3)
	if err := store.Save(ctx, "sid", c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if c.Dirty() {
		t.Fatal("save must clear the dirty flag")
	}
	if got := client.ttls["shop:session:sid"]; got != time.Hour {
		t.Fatalf("ttl: got %s, want 1h", got)
	}

	loaded, err := store.Load(ctx, "sid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.ItemCount(); got != 2 {
		t.Fatalf("item count: got %d, want 2", got)
	}
	if loaded.CouponID == nil || *loaded.CouponID != 3 {
		t.Fatalf("coupon id: got %v, want 3", loaded.CouponID)
	}
	if got := loaded.Lines["1"].UnitPrice; got != "10" {
		t.Fatalf("unit price: got %q", got)
	}
}

func TestRedisStoreLoadMissYieldsEmptyCart(t *testing.T) {
	t.Parallel()

	store, err := NewRedisStore(newFakeSessionClient(), time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	c, err := store.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c == nil || len(c.Lines) != 0 {
		t.Fatalf("expected fresh empty cart, got %+v", c)
	}
}

func TestRedisStoreLoadDiscardsCorruptPayload(t *testing.T) {
	t.Parallel()

	client := newFakeSessionClient()
	client.values["shop:session:sid"] = "{not json"
	store, err := NewRedisStore(client, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	c, err := store.Load(context.Background(), "sid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Lines) != 0 {
		t.Fatalf("expected empty cart for corrupt payload, got %+v", c)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	t.Parallel()

	client := newFakeSessionClient()
	store, err := NewRedisStore(client, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	c := New()
	c.Add(testProduct(1, "10.00"), 1, false)
	if err := store.Save(ctx, "sid", c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reloaded, err := store.Load(ctx, "sid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(reloaded.Lines) != 0 {
		t.Fatal("expected empty cart after delete")
	}
}
