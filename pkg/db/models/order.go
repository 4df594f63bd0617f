package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order stores customer information and the payment status of one checkout.
// The coupon discount percentage is snapshotted onto the order at creation so
// later coupon edits never change a placed order's totals.
type Order struct {
	ID         int64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName  string      `gorm:"column:first_name;not null" json:"first_name"`
	LastName   string      `gorm:"column:last_name;not null" json:"last_name"`
	Email      string      `gorm:"column:email;not null" json:"email"`
	Address    string      `gorm:"column:address;not null" json:"address"`
	PostalCode string      `gorm:"column:postal_code;not null" json:"postal_code"`
	City       string      `gorm:"column:city;not null" json:"city"`
	Paid       bool        `gorm:"column:paid;not null;default:false" json:"paid"`
	StripeID   string      `gorm:"column:stripe_id" json:"stripe_id,omitempty"`
	CouponID   *int64      `gorm:"column:coupon_id" json:"coupon_id,omitempty"`
	Coupon     *Coupon     `gorm:"foreignKey:CouponID;constraint:OnDelete:SET NULL" json:"coupon,omitempty"`
	Discount   int         `gorm:"column:discount;not null;default:0" json:"discount"`
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TotalBeforeDiscount sums line item costs.
func (o Order) TotalBeforeDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Cost())
	}
	return total
}

// DiscountAmount is the snapshotted percentage applied to the item total.
func (o Order) DiscountAmount() decimal.Decimal {
	if o.Discount == 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(o.Discount)).Div(decimal.NewFromInt(100))
	return o.TotalBeforeDiscount().Mul(pct)
}

// Total is the amount due after the discount.
func (o Order) Total() decimal.Decimal {
	return o.TotalBeforeDiscount().Sub(o.DiscountAmount())
}

// ProductIDs lists the distinct products across the order's line items.
func (o Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
