package review

import (
	"context"
	"strings"
	"unicode/utf8"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	// Upsert creates or replaces the caller's review of a product.
	Upsert(ctx context.Context, who identity.Identity, productID int64, input UpsertInput) (*Review, bool, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	Summary(ctx context.Context, productID int64) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Upsert(
	ctx context.Context,
	who identity.Identity,
	productID int64,
	input UpsertInput,
) (*Review, bool, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Upsert"),
		zap.Int64("product_id", productID),
	)

	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, false, err
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		return nil, false, ErrInvalidRating
	}

	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, false, ErrCommentTooLong
	}

	rv := &Review{
		CustomerID: customerID,
		ProductID:  productID,
		Rating:     input.Rating,
		Comment:    comment,
	}
	created, err := s.repo.Upsert(ctx, rv)
	if err != nil {
		return nil, false, err
	}

	log.Info("review saved", zap.Int64("review_id", rv.ID), zap.Bool("created", created))
	return rv, created, nil
}

func (s *service) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	return s.repo.ListByProduct(ctx, productID)
}

func (s *service) Summary(ctx context.Context, productID int64) (*Summary, error) {
	return s.repo.Summary(ctx, productID)
}
