package clickhistory

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	Insert(ctx context.Context, customerID, productID int64) error

	// List returns the most recent views first.
	List(ctx context.Context, customerID int64, limit int) ([]Click, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, customerID, productID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO click_history (customer_id, product_id)
		VALUES ($1, $2)
	`, customerID, productID)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, customerID int64, limit int) ([]Click, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.customer_id, c.product_id, p.name, c.viewed_at
		FROM click_history c
		JOIN products p ON p.id = c.product_id
		WHERE c.customer_id = $1
		ORDER BY c.viewed_at DESC, c.id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	defer rows.Close()

	clicks := []Click{}
	for rows.Next() {
		var c Click
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.ProductID, &c.ProductName, &c.ViewedAt); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}
