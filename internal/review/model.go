package review

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5

	maxCommentLength = 2000
)

type Review struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	ProductID  int64     `json:"product_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

type UpsertInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Summary aggregates the ratings of one product. Average is zero when there
// are no reviews.
type Summary struct {
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}
