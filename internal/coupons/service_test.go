package coupons

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Coupon{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func mustCreateCoupon(t *testing.T, db *gorm.DB, code string, from, to time.Time, discount int, active bool) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:      code,
		ValidFrom: from,
		ValidTo:   to,
		Discount:  discount,
		Active:    active,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return coupon
}

func TestApplyByCodeResolvesActiveCoupon(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	now := time.Now().UTC()
	mustCreateCoupon(t, db, "SUMMER10", now.Add(-time.Hour), now.Add(time.Hour), 10, true)

	coupon, err := svc.ApplyByCode(context.Background(), "summer10", now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if coupon.Discount != 10 {
		t.Fatalf("unexpected discount: %d", coupon.Discount)
	}
}

func TestApplyByCodeRejectsExpired(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	now := time.Now().UTC()
	mustCreateCoupon(t, db, "OLD", now.Add(-48*time.Hour), now.Add(-24*time.Hour), 15, true)

	_, err := svc.ApplyByCode(context.Background(), "OLD", now)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for expired coupon, got %v", err)
	}
}

func TestGetValidWindowBoundsAreInclusive(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	coupon := mustCreateCoupon(t, db, "AUG", from, to, 20, true)

	for _, at := range []time.Time{from, to} {
		got, err := svc.GetValid(context.Background(), coupon.ID, at)
		if err != nil {
			t.Fatalf("get valid at %s: %v", at, err)
		}
		if got == nil {
			t.Fatalf("expected coupon valid at boundary %s", at)
		}
	}

	got, err := svc.GetValid(context.Background(), coupon.ID, to.Add(time.Second))
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after window end")
	}
}

func TestGetValidMissSilentlyReturnsNil(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	got, err := svc.GetValid(context.Background(), 404, time.Now())
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing coupon")
	}
}

func TestGetValidInactiveReturnsNil(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	now := time.Now().UTC()
	coupon := mustCreateCoupon(t, db, "PAUSED", now.Add(-time.Hour), now.Add(time.Hour), 10, false)

	got, err := svc.GetValid(context.Background(), coupon.ID, now)
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for inactive coupon")
	}
}
