package models

import "time"

// Coupon is a percentage discount valid for a time window.
type Coupon struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"column:code;not null;uniqueIndex" json:"code"`
	ValidFrom time.Time `gorm:"column:valid_from;not null" json:"valid_from"`
	ValidTo   time.Time `gorm:"column:valid_to;not null" json:"valid_to"`
	Discount  int       `gorm:"column:discount;not null" json:"discount"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
}

// IsValidAt reports whether the coupon can be redeemed at the given instant.
// Both window bounds are inclusive.
func (c Coupon) IsValidAt(at time.Time) bool {
	if !c.Active {
		return false
	}
	if at.Before(c.ValidFrom) || at.After(c.ValidTo) {
		return false
	}
	return c.Discount >= 0 && c.Discount <= 100
}
