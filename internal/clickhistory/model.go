package clickhistory

import "time"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Click is one product-detail view by a customer.
type Click struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	ViewedAt    time.Time `json:"viewed_at"`
}
