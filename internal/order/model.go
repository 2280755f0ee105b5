package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	ShippingAddress string          `json:"shipping_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items"`
}

// OrderItem is a purchased line. PaidPrice is frozen at checkout.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      int             `json:"quantity"`
	PaidPrice     decimal.Decimal `json:"paid_price"`
	CurrentStatus Status          `json:"current_status"`
	History       []StatusRecord  `json:"history,omitempty"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PaidPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type StatusRecord struct {
	ID           int64         `json:"id"`
	OrderItemID  int64         `json:"order_item_id"`
	Status       Status        `json:"status"`
	CancelReason *CancelReason `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// VendorItem is an order line as seen by the store that sells it.
type VendorItem struct {
	OrderItem
	CustomerID      int64     `json:"customer_id"`
	ShippingAddress string    `json:"shipping_address"`
	OrderedAt       time.Time `json:"ordered_at"`
}

type CheckoutLine struct {
	CartItemID int64
	ProductID  int64
	Quantity   int
	PaidPrice  decimal.Decimal
}

type CreateOrderParams struct {
	CustomerID      int64
	ShippingAddress string
	TotalAmount     decimal.Decimal
	Lines           []CheckoutLine

	// PricedAt is the instant the frozen prices were quoted for.
	PricedAt time.Time
}
