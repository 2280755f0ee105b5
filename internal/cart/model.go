package cart

import (
	"time"

	"vinylstore-be/internal/pricing"
	"vinylstore-be/internal/product"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Row is a cart item joined with its live product.
type Row struct {
	CartItem
	Product product.Product
}

// Line is a cart row priced at the snapshot instant.
type Line struct {
	CartItemID int64           `json:"cart_item_id"`
	Product    product.Product `json:"product"`
	Quantity   int             `json:"quantity"`
	Quote      pricing.Quote   `json:"quote"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type Snapshot struct {
	CustomerID int64           `json:"customer_id"`
	Lines      []Line          `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	TakenAt    time.Time       `json:"taken_at"`
}

func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Lines) == 0
}
