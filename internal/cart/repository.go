package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinylstore-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// Add inserts the row or increments an existing one. The resulting
	// quantity is checked against live stock in the same statement; when it
	// does not fit nothing is written and ErrInsufficientStock is returned.
	Add(ctx context.Context, customerID, productID int64, quantity int) (*CartItem, error)
	GetByID(ctx context.Context, id int64) (*CartItem, error)

	// SetQuantity overwrites the quantity if live stock covers it.
	SetQuantity(ctx context.Context, id, customerID int64, quantity int) (*CartItem, error)
	Delete(ctx context.Context, id, customerID int64) error
	ListRows(ctx context.Context, customerID int64) ([]Row, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanItem(row interface{ Scan(...any) error }) (*CartItem, error) {
	var item CartItem
	err := row.Scan(
		&item.ID,
		&item.CustomerID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Add(
	ctx context.Context,
	customerID, productID int64,
	quantity int,
) (*CartItem, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Add"),
		zap.Int64("customer_id", customerID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)

	log.Debug("start upsert cart item")

	query := `
	INSERT INTO cart_items (customer_id, product_id, quantity)
	SELECT $1, p.id, $3
	FROM products p
	WHERE p.id = $2
	  AND p.is_available = TRUE
	  AND p.stock_quantity >= $3
	ON CONFLICT (customer_id, product_id) DO UPDATE
	SET quantity = cart_items.quantity + EXCLUDED.quantity,
	    updated_at = NOW()
	WHERE cart_items.quantity + EXCLUDED.quantity <= (
		SELECT stock_quantity FROM products WHERE id = EXCLUDED.product_id
	)
	RETURNING id, customer_id, product_id, quantity, created_at, updated_at
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, customerID, productID, quantity))
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("combined quantity exceeds stock")
		return nil, ErrInsufficientStock
	}
	if err != nil {
		log.Error("failed to upsert cart item", zap.Error(err))
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	log.Info("cart item upserted", zap.Int64("cart_item_id", item.ID), zap.Int("total_quantity", item.Quantity))
	return item, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*CartItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart item %d: %w", id, err)
	}
	return item, nil
}

func (r *repository) SetQuantity(
	ctx context.Context,
	id, customerID int64,
	quantity int,
) (*CartItem, error) {

	query := `
	UPDATE cart_items c
	SET quantity = $1,
	    updated_at = NOW()
	FROM products p
	WHERE c.id = $2
	  AND c.customer_id = $3
	  AND p.id = c.product_id
	  AND p.stock_quantity >= $1
	RETURNING c.id, c.customer_id, c.product_id, c.quantity, c.created_at, c.updated_at
	`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, quantity, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("set cart quantity: %w", err)
	}
	return item, nil
}

func (r *repository) Delete(ctx context.Context, id, customerID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) ListRows(ctx context.Context, customerID int64) ([]Row, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListRows"),
		zap.Int64("customer_id", customerID),
	)

	query := `
	SELECT
		c.id, c.customer_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		p.id, p.store_id, p.name, p.description, p.price, p.stock_quantity,
		p.is_available, p.created_at, p.updated_at
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
	WHERE c.customer_id = $1
	ORDER BY c.id
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		log.Error("failed to query cart rows", zap.Error(err))
		return nil, fmt.Errorf("list cart rows: %w", err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID,
			&row.CustomerID,
			&row.ProductID,
			&row.Quantity,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.Product.ID,
			&row.Product.StoreID,
			&row.Product.Name,
			&row.Product.Description,
			&row.Product.Price,
			&row.Product.StockQuantity,
			&row.Product.IsAvailable,
			&row.Product.CreatedAt,
			&row.Product.UpdatedAt,
		); err != nil {
			log.Error("failed to scan cart row", zap.Error(err))
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	log.Debug("cart rows loaded", zap.Int("count", len(result)))
	return result, nil
}
