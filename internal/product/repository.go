package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/pricing"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const productColumns = `id, store_id, name, description, price, stock_quantity, is_available, created_at, updated_at`

const promotionColumns = `id, product_id, discount_rate, start_time, end_time, status, created_at`

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	ListByStore(ctx context.Context, storeID int64) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// Update writes the editable fields of p. Stock is only overwritten when
	// stock is non-nil; p.StockQuantity is refreshed from the stored row.
	Update(ctx context.Context, p *Product, stock *int) error
	GetStoreByVendor(ctx context.Context, vendorID int64) (*Store, error)

	// Promotions are returned in ascending id order.
	ListPromotions(ctx context.Context, productID int64) ([]pricing.Promotion, error)
	ListPromotionsByProducts(ctx context.Context, productIDs []int64) (map[int64][]pricing.Promotion, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.StoreID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.IsAvailable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPromotion(row scanner) (pricing.Promotion, error) {
	var p pricing.Promotion
	err := row.Scan(
		&p.ID,
		&p.ProductID,
		&p.DiscountRate,
		&p.StartTime,
		&p.EndTime,
		&p.Status,
		&p.CreatedAt,
	)
	return p, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	conds := []string{"is_available = TRUE"}
	args := []any{}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.StoreID != nil {
		args = append(args, *f.StoreID)
		conds = append(conds, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		productColumns,
		strings.Join(conds, " AND "),
		len(args)-1,
		len(args),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *repository) ListByStore(ctx context.Context, storeID int64) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = $1 ORDER BY id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list store products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]Product, error) {
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int64("store_id", p.StoreID),
	)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (store_id, name, description, price, stock_quantity, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		p.StoreID,
		p.Name,
		p.Description,
		p.Price,
		p.StockQuantity,
		p.IsAvailable,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		log.Error("failed to insert product", zap.Error(err))
		return fmt.Errorf("create product: %w", err)
	}

	log.Info("product created", zap.Int64("product_id", p.ID))
	return nil
}

func (r *repository) Update(ctx context.Context, p *Product, stock *int) error {
	var newStock sql.NullInt64
	if stock != nil {
		newStock = sql.NullInt64{Int64: int64(*stock), Valid: true}
	}

	// Checkouts decrement stock concurrently, so an edit that leaves stock
	// alone must not write back the value it loaded.
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price = $3,
		    stock_quantity = COALESCE($4, stock_quantity),
		    is_available = $5,
		    updated_at = NOW()
		WHERE id = $6
		RETURNING stock_quantity, updated_at
	`,
		p.Name,
		p.Description,
		p.Price,
		newStock,
		p.IsAvailable,
		p.ID,
	).Scan(&p.StockQuantity, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *repository) GetStoreByVendor(ctx context.Context, vendorID int64) (*Store, error) {
	var s Store
	err := r.db.QueryRowContext(ctx, `
		SELECT id, vendor_id, name, description, created_at
		FROM stores
		WHERE vendor_id = $1
	`, vendorID).Scan(&s.ID, &s.VendorID, &s.Name, &s.Description, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store for vendor %d: %w", vendorID, err)
	}
	return &s, nil
}

func (r *repository) ListPromotions(ctx context.Context, productID int64) ([]pricing.Promotion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promos := []pricing.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (r *repository) ListPromotionsByProducts(
	ctx context.Context,
	productIDs []int64,
) (map[int64][]pricing.Promotion, error) {

	out := make(map[int64][]pricing.Promotion, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("list promotions by products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out[p.ProductID] = append(out[p.ProductID], p)
	}
	return out, rows.Err()
}
