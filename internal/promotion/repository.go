package promotion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinylstore-be/internal/pricing"
)

type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, id int64) (*Promotion, error)
	UpdateStatus(ctx context.Context, id int64, status pricing.PromotionStatus) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Promotion) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO promotions (product_id, discount_rate, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		p.ProductID,
		p.DiscountRate,
		p.StartTime,
		p.EndTime,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Promotion, error) {
	var p Promotion
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, discount_rate, start_time, end_time, status, created_at
		FROM promotions
		WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.ProductID,
		&p.DiscountRate,
		&p.StartTime,
		&p.EndTime,
		&p.Status,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get promotion %d: %w", id, err)
	}
	return &p, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status pricing.PromotionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promotions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update promotion status: %w", err)
	}
	return requireOneRow(res)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPromotionNotFound
	}
	return nil
}
