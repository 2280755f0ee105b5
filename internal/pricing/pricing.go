package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Quote is the breakdown of an effective price at one instant.
type Quote struct {
	ListPrice    decimal.Decimal `json:"list_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Discount     decimal.Decimal `json:"discount"`
	Price        decimal.Decimal `json:"price"`
	PromotionID  *int64          `json:"promotion_id,omitempty"`
}

// DiscountAmount is price * rate / 100 rounded half-up to cents.
// rate is clamped to [0, 100].
func DiscountAmount(price, rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	if rate.GreaterThan(hundred) {
		rate = hundred
	}
	return price.Mul(rate).Div(hundred).Round(2)
}

// QuoteAt prices listPrice against the promotion SelectActive picks at now.
func QuoteAt(listPrice decimal.Decimal, promotions []Promotion, now time.Time) Quote {
	q := Quote{
		ListPrice:    listPrice,
		DiscountRate: decimal.Zero,
		Discount:     decimal.Zero,
		Price:        listPrice,
	}

	promo, ok := SelectActive(promotions, now)
	if !ok {
		return q
	}

	id := promo.ID
	q.PromotionID = &id
	q.DiscountRate = promo.DiscountRate
	q.Discount = DiscountAmount(listPrice, promo.DiscountRate)
	q.Price = listPrice.Sub(q.Discount)
	return q
}

// EffectivePrice is the unit price a customer pays at now.
func EffectivePrice(listPrice decimal.Decimal, promotions []Promotion, now time.Time) decimal.Decimal {
	return QuoteAt(listPrice, promotions, now).Price
}
