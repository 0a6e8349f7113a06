package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	ShippingAddress string `json:"shippingAddress" binding:"required"`
	PhoneNumber     string `json:"phoneNumber" binding:"required"`
}

// OrderLine is one cart line as read inside the placement transaction:
// requested quantity plus the product's price and stock at that moment.
// Price is read exactly once per product; the same value feeds both the
// order total and the per-line snapshot.
type OrderLine struct {
	ProductID   int
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	Stock       int
}

type OrderResponse struct {
	ID              int               `json:"id"`
	UserID          string            `json:"user_id"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	ShippingAddress string            `json:"shipping_address"`
	PhoneNumber     string            `json:"phone_number"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemDetail `json:"items"`
}

type OrderItemDetail struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderEvent struct {
	OrderID  int             `json:"order_id"`
	UserID   string          `json:"user_id"`
	Type     string          `json:"type"` // created, status_updated, payment_check
	Status   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Occurred time.Time       `json:"occurred"`
}

// OrderTotal sums price x quantity over the lines using the single
// in-transaction price read.
func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
