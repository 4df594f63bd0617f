package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Price is the current list price; carts and
// order items snapshot it at add time, so changing it here never rewrites an
// open cart or a placed order.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CategoryID  int64           `gorm:"column:category_id;not null;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Slug        string          `gorm:"column:slug;not null;index" json:"slug"`
	Description string          `gorm:"column:description" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Available   bool            `gorm:"column:available;not null;default:true" json:"available"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
