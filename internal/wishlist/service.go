package wishlist

import (
	"context"
	"errors"

	"vinylstore-be/internal/clock"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/pricing"
	"vinylstore-be/internal/product"

	"go.uber.org/zap"
)

type Service interface {
	// Toggle removes the product if wishlisted, otherwise adds it with the
	// price in effect now.
	Toggle(ctx context.Context, who identity.Identity, productID int64) (Action, error)
	List(ctx context.Context, who identity.Identity) ([]Item, error)

	// Contains is false for anyone who is not a customer.
	Contains(ctx context.Context, who identity.Identity, productID int64) (bool, error)
}

type service struct {
	repo     Repository
	products product.Repository
	clock    clock.Clock
}

func NewService(repo Repository, products product.Repository, clk clock.Clock) Service {
	return &service{repo: repo, products: products, clock: clk}
}

func (s *service) Toggle(ctx context.Context, who identity.Identity, productID int64) (Action, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Toggle"),
		zap.Int64("product_id", productID),
	)

	customerID, err := who.RequireCustomer()
	if err != nil {
		return "", err
	}

	removed, err := s.repo.Remove(ctx, customerID, productID)
	if err != nil {
		log.Error("failed to remove wishlist item", zap.Error(err))
		return "", err
	}
	if removed {
		log.Info("wishlist item removed")
		return ActionRemoved, nil
	}

	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, product.ErrProductNotFound) {
		return "", ErrProductNotFound
	}
	if err != nil {
		return "", err
	}
	if !p.IsAvailable {
		return "", ErrProductNotFound
	}

	promos, err := s.products.ListPromotions(ctx, p.ID)
	if err != nil {
		return "", err
	}
	quote := pricing.QuoteAt(p.Price, promos, s.clock.Now())

	item := &Item{
		CustomerID:       customerID,
		ProductID:        p.ID,
		ProductName:      p.Name,
		OriginalPrice:    quote.ListPrice,
		DiscountRate:     quote.DiscountRate,
		PriceAtAddedTime: quote.Price,
	}
	if err := s.repo.Add(ctx, item); err != nil {
		return "", err
	}

	log.Info("wishlist item added", zap.String("price_at_added_time", item.PriceAtAddedTime.StringFixed(2)))
	return ActionAdded, nil
}

func (s *service) List(ctx context.Context, who identity.Identity) ([]Item, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, customerID)
}

func (s *service) Contains(ctx context.Context, who identity.Identity, productID int64) (bool, error) {
	if !who.IsCustomer() {
		return false, nil
	}
	return s.repo.Contains(ctx, who.ID, productID)
}
