package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinylstore-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// Remove deletes the pair and reports whether a row existed.
	Remove(ctx context.Context, customerID, productID int64) (bool, error)

	// Add inserts the item unless the pair is already present.
	Add(ctx context.Context, item *Item) error
	List(ctx context.Context, customerID int64) ([]Item, error)
	Contains(ctx context.Context, customerID, productID int64) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Remove(ctx context.Context, customerID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM wishlist_items
		WHERE customer_id = $1 AND product_id = $2
	`, customerID, productID)
	if err != nil {
		return false, fmt.Errorf("remove wishlist item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) Add(ctx context.Context, item *Item) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Add"),
		zap.Int64("customer_id", item.CustomerID),
		zap.Int64("product_id", item.ProductID),
	)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wishlist_items (customer_id, product_id, original_price, discount_rate, price_at_added_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, product_id) DO NOTHING
		RETURNING id, created_at
	`,
		item.CustomerID,
		item.ProductID,
		item.OriginalPrice,
		item.DiscountRate,
		item.PriceAtAddedTime,
	).Scan(&item.ID, &item.CreatedAt)

	// A concurrent toggle won the insert; the pair is present either way.
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("wishlist item already present")
		return nil
	}
	if err != nil {
		log.Error("failed to insert wishlist item", zap.Error(err))
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, customerID int64) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.id, w.customer_id, w.product_id, p.name,
		       w.original_price, w.discount_rate, w.price_at_added_time, w.created_at
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.customer_id = $1
		ORDER BY w.created_at DESC, w.id DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID,
			&it.CustomerID,
			&it.ProductID,
			&it.ProductName,
			&it.OriginalPrice,
			&it.DiscountRate,
			&it.PriceAtAddedTime,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Contains(ctx context.Context, customerID, productID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM wishlist_items WHERE customer_id = $1 AND product_id = $2
		)
	`, customerID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}
	return exists, nil
}
