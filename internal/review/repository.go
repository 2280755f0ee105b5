package review

import (
	"context"
	"database/sql"
	"fmt"

	"vinylstore-be/internal/db"
	"vinylstore-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// Upsert writes the review for (customer, product), replacing rating and
	// comment of an existing one. created is true when a new row was inserted.
	Upsert(ctx context.Context, r *Review) (created bool, err error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	Summary(ctx context.Context, productID int64) (*Summary, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, rv *Review) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Upsert"),
		zap.Int64("customer_id", rv.CustomerID),
		zap.Int64("product_id", rv.ProductID),
	)

	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (customer_id, product_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id) DO UPDATE
		SET rating = EXCLUDED.rating,
		    comment = EXCLUDED.comment
		RETURNING id, created_at, (xmax = 0) AS created
	`, rv.CustomerID, rv.ProductID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt, &created)
	if db.IsPgError(err, db.PgForeignKeyViolation) {
		log.Warn("review for unknown product")
		return false, ErrProductNotFound
	}
	if err != nil {
		log.Error("failed to upsert review", zap.Error(err))
		return false, fmt.Errorf("upsert review: %w", err)
	}

	return created, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, product_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.CustomerID, &rv.ProductID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *repository) Summary(ctx context.Context, productID int64) (*Summary, error) {
	var (
		avg decimal.NullDecimal
		s   Summary
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT ROUND(AVG(rating), 2), COUNT(*)
		FROM reviews
		WHERE product_id = $1
	`, productID).Scan(&avg, &s.Count)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}

	s.Average = decimal.Zero
	if avg.Valid {
		s.Average = avg.Decimal
	}
	return &s, nil
}
