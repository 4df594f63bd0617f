package models

import "github.com/shopspring/decimal"

// OrderItem is one product line within an order. Price is the cart's recorded
// unit price, not the product's live price.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID int64           `gorm:"column:product_id;not null" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null" json:"price"`
	Quantity  int             `gorm:"column:quantity;not null;default:1" json:"quantity"`
}

// Cost is the line total.
func (i OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
