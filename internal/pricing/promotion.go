package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type PromotionStatus string

const (
	PromotionActive   PromotionStatus = "active"
	PromotionInactive PromotionStatus = "inactive"
	PromotionExpired  PromotionStatus = "expired"
)

func (s PromotionStatus) Valid() bool {
	switch s {
	case PromotionActive, PromotionInactive, PromotionExpired:
		return true
	}
	return false
}

// Promotion is a time-windowed percentage discount on one product.
type Promotion struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Status       PromotionStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// QualifiesAt reports whether the promotion is active and its window,
// inclusive on both ends, contains now.
func (p Promotion) QualifiesAt(now time.Time) bool {
	return p.Status == PromotionActive &&
		!now.Before(p.StartTime) &&
		!now.After(p.EndTime)
}

// SelectActive returns the qualifying promotion with the lowest id.
// The input order does not matter and the slice is not modified.
func SelectActive(promotions []Promotion, now time.Time) (Promotion, bool) {
	ordered := make([]Promotion, len(promotions))
	copy(ordered, promotions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	for _, p := range ordered {
		if p.QualifiesAt(now) {
			return p, true
		}
	}
	return Promotion{}, false
}
