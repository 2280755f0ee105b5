package product

import (
	"time"

	"vinylstore-be/internal/pricing"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `json:"id"`
	StoreID       int64           `json:"store_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

type Store struct {
	ID          int64     `json:"id"`
	VendorID    int64     `json:"vendor_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Listing is a product priced at one instant.
type Listing struct {
	Product
	Quote pricing.Quote `json:"quote"`
}

type Dashboard struct {
	Store    Store     `json:"store"`
	Products []Listing `json:"products"`
}

type ListFilter struct {
	Search   string
	StoreID  *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Limit    int
	Offset   int
}

type CreateInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   *bool           `json:"is_available"`
}

// UpdateInput is a partial edit; nil fields are left as they are.
type UpdateInput struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
	IsAvailable   *bool            `json:"is_available"`
}
