// Package order holds the order model and the saga-originating order service.
package order

import (
	"fmt"
	"time"
)

// Product is a catalog item referenced by an order.
type Product struct {
	Code      string  `json:"code"`
	UnitValue float64 `json:"unit_value"`
}

// OrderProduct is a line item: a product and the quantity ordered.
type OrderProduct struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Order is the payload carried through the saga.
type Order struct {
	ID            string         `json:"id"`
	Products      []OrderProduct `json:"products"`
	CreatedAt     time.Time      `json:"created_at"`
	TransactionID string         `json:"transaction_id"`
	TotalAmount   float64        `json:"total_amount"`
	TotalItems    int            `json:"total_items"`
}

// Totals computes the order amount and item count from its line items.
func (o Order) Totals() (amount float64, items int) {
	for _, p := range o.Products {
		amount += p.Product.UnitValue * float64(p.Quantity)
		items += p.Quantity
	}
	return amount, items
}

// Validate checks that the order is well formed before starting a saga.
func (o Order) Validate() error {
	if len(o.Products) == 0 {
		return fmt.Errorf("order: product list is empty")
	}
	for i, p := range o.Products {
		if p.Product.Code == "" {
			return fmt.Errorf("order: product %d has no code", i)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("order: product %s has non-positive quantity %d", p.Product.Code, p.Quantity)
		}
	}
	return nil
}
