package clickhistory

import (
	"context"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	// Record notes a product view. It does nothing for anonymous callers and
	// vendors, and never fails the caller.
	Record(ctx context.Context, who identity.Identity, productID int64)
	List(ctx context.Context, who identity.Identity, limit int) ([]Click, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, who identity.Identity, productID int64) {
	if !who.IsCustomer() {
		return
	}

	if err := s.repo.Insert(ctx, who.ID, productID); err != nil {
		logger.FromCtx(ctx).Warn("failed to record click",
			zap.String("layer", "service"),
			zap.Int64("customer_id", who.ID),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
}

func (s *service) List(ctx context.Context, who identity.Identity, limit int) ([]Click, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	} else if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.List(ctx, customerID, limit)
}
