package promotion

import (
	"context"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/pricing"
	"vinylstore-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxRate = decimal.NewFromInt(100)

// Service manages a vendor's promotions. Reading promotions for pricing
// goes through product.Repository.
type Service interface {
	Add(ctx context.Context, who identity.Identity, productID int64, input CreateInput) (*Promotion, error)
	Delete(ctx context.Context, who identity.Identity, promotionID int64) error
	Toggle(ctx context.Context, who identity.Identity, promotionID int64) (*Promotion, error)
}

type service struct {
	repo     Repository
	products product.Service
}

func NewService(repo Repository, products product.Service) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Add(
	ctx context.Context,
	who identity.Identity,
	productID int64,
	input CreateInput,
) (*Promotion, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddPromotion"),
		zap.Int64("product_id", productID),
	)

	if input.DiscountRate.IsNegative() || input.DiscountRate.GreaterThan(maxRate) {
		return nil, ErrInvalidRate
	}
	if input.StartTime.After(input.EndTime) {
		return nil, ErrInvalidWindow
	}
	if input.Status == "" {
		input.Status = pricing.PromotionActive
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if _, err := s.products.OwnedBy(ctx, who, productID); err != nil {
		return nil, err
	}

	p := &Promotion{
		ProductID:    productID,
		DiscountRate: input.DiscountRate.Round(2),
		StartTime:    input.StartTime.UTC(),
		EndTime:      input.EndTime.UTC(),
		Status:       input.Status,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		log.Error("failed to create promotion", zap.Error(err))
		return nil, err
	}

	log.Info("promotion created", zap.Int64("promotion_id", p.ID))
	return p, nil
}

func (s *service) Delete(ctx context.Context, who identity.Identity, promotionID int64) error {
	if _, err := s.owned(ctx, who, promotionID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, promotionID)
}

// Toggle flips active and inactive. Expired promotions stay expired.
func (s *service) Toggle(ctx context.Context, who identity.Identity, promotionID int64) (*Promotion, error) {
	p, err := s.owned(ctx, who, promotionID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case pricing.PromotionActive:
		p.Status = pricing.PromotionInactive
	case pricing.PromotionInactive:
		p.Status = pricing.PromotionActive
	default:
		return nil, ErrPromotionExpired
	}

	if err := s.repo.UpdateStatus(ctx, p.ID, p.Status); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("promotion toggled",
		zap.Int64("promotion_id", p.ID),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}

func (s *service) owned(ctx context.Context, who identity.Identity, promotionID int64) (*Promotion, error) {
	if _, err := who.RequireVendor(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.OwnedBy(ctx, who, p.ProductID); err != nil {
		return nil, err
	}
	return p, nil
}
