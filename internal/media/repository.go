package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinylstore-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// Create appends m at the end of the product's sort order. A primary
	// upload clears the flag on the product's other media.
	Create(ctx context.Context, m *Media) error
	GetByID(ctx context.Context, id int64) (*Media, error)
	ListByProduct(ctx context.Context, productID int64) ([]Media, error)
	SetPrimary(ctx context.Context, productID, mediaID int64) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) withTx(ctx context.Context, method string, fn func(tx *sql.Tx) error) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return err
	}
	committed = true
	return nil
}

func (r *repository) Create(ctx context.Context, m *Media) error {
	return r.withTx(ctx, "Create", func(tx *sql.Tx) error {
		if m.IsPrimary {
			if _, err := tx.ExecContext(ctx,
				`UPDATE product_media SET is_primary = FALSE WHERE product_id = $1`, m.ProductID,
			); err != nil {
				return fmt.Errorf("clear primary media: %w", err)
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO product_media (product_id, url, media_type, is_primary, sort_order)
			VALUES ($1, $2, $3, $4, (SELECT COUNT(*) FROM product_media WHERE product_id = $1))
			RETURNING id, sort_order
		`,
			m.ProductID,
			m.URL,
			m.MediaType,
			m.IsPrimary,
		).Scan(&m.ID, &m.SortOrder)
		if err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Media, error) {
	var m Media
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, url, media_type, is_primary, sort_order
		FROM product_media
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ProductID, &m.URL, &m.MediaType, &m.IsPrimary, &m.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media %d: %w", id, err)
	}
	return &m, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID int64) ([]Media, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, url, media_type, is_primary, sort_order
		FROM product_media
		WHERE product_id = $1
		ORDER BY sort_order, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := []Media{}
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.ProductID, &m.URL, &m.MediaType, &m.IsPrimary, &m.SortOrder); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repository) SetPrimary(ctx context.Context, productID, mediaID int64) error {
	return r.withTx(ctx, "SetPrimary", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_media SET is_primary = FALSE WHERE product_id = $1`, productID,
		); err != nil {
			return fmt.Errorf("clear primary media: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE product_media SET is_primary = TRUE WHERE id = $1 AND product_id = $2`, mediaID, productID)
		if err != nil {
			return fmt.Errorf("set primary media: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrMediaNotFound
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMediaNotFound
	}
	return nil
}
