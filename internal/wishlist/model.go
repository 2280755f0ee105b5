package wishlist

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Item freezes the price a product had when it was wishlisted. It does not
// follow later price or promotion changes.
type Item struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	ProductID        int64           `json:"product_id"`
	ProductName      string          `json:"product_name,omitempty"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	DiscountRate     decimal.Decimal `json:"discount_rate"`
	PriceAtAddedTime decimal.Decimal `json:"price_at_added_time"`
	CreatedAt        time.Time       `json:"created_at"`
}
