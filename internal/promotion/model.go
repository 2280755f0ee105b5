package promotion

import (
	"time"

	"vinylstore-be/internal/pricing"

	"github.com/shopspring/decimal"
)

type Promotion = pricing.Promotion

type CreateInput struct {
	DiscountRate decimal.Decimal         `json:"discount_rate"`
	StartTime    time.Time               `json:"start_time"`
	EndTime      time.Time               `json:"end_time"`
	Status       pricing.PromotionStatus `json:"status"`
}
