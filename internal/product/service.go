package product

import (
	"context"
	"strings"

	"vinylstore-be/internal/clock"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/pricing"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Listing, error)
	Get(ctx context.Context, productID int64) (*Listing, error)
	Dashboard(ctx context.Context, who identity.Identity) (*Dashboard, error)
	Create(ctx context.Context, who identity.Identity, input CreateInput) (*Product, error)
	Update(ctx context.Context, who identity.Identity, productID int64, input UpdateInput) (*Product, error)

	// OwnedBy loads a product and checks that it belongs to the vendor's store.
	OwnedBy(ctx context.Context, who identity.Identity, productID int64) (*Product, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, clk clock.Clock) Service {
	return &service{repo: repo, clock: clk}
}

func (s *service) List(ctx context.Context, f ListFilter) ([]Listing, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	} else if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidPriceRange
	}

	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, products)
}

func (s *service) Get(ctx context.Context, productID int64) (*Listing, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable {
		return nil, ErrProductNotFound
	}

	promos, err := s.repo.ListPromotions(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Product: *p,
		Quote:   pricing.QuoteAt(p.Price, promos, s.clock.Now()),
	}, nil
}

func (s *service) Dashboard(ctx context.Context, who identity.Identity) (*Dashboard, error) {
	vendorID, err := who.RequireVendor()
	if err != nil {
		return nil, err
	}

	store, err := s.repo.GetStoreByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	listings, err := s.price(ctx, products)
	if err != nil {
		return nil, err
	}

	return &Dashboard{Store: *store, Products: listings}, nil
}

func (s *service) Create(ctx context.Context, who identity.Identity, input CreateInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.Stringer("identity", who),
	)

	vendorID, err := who.RequireVendor()
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrInvalidName
	}
	if input.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if input.StockQuantity < 0 {
		return nil, ErrInvalidStock
	}

	store, err := s.repo.GetStoreByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}

	p := &Product{
		StoreID:       store.ID,
		Name:          input.Name,
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price.Round(2),
		StockQuantity: input.StockQuantity,
		IsAvailable:   available,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.Int64("product_id", p.ID))
	return p, nil
}

func (s *service) Update(
	ctx context.Context,
	who identity.Identity,
	productID int64,
	input UpdateInput,
) (*Product, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.Int64("product_id", productID),
	)

	p, err := s.OwnedBy(ctx, who, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		p.Price = input.Price.Round(2)
	}
	if input.StockQuantity != nil && *input.StockQuantity < 0 {
		return nil, ErrInvalidStock
	}
	if input.IsAvailable != nil {
		p.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.Update(ctx, p, input.StockQuantity); err != nil {
		log.Error("failed to update product", zap.Error(err))
		return nil, err
	}

	log.Info("product updated")
	return p, nil
}

func (s *service) OwnedBy(ctx context.Context, who identity.Identity, productID int64) (*Product, error) {
	vendorID, err := who.RequireVendor()
	if err != nil {
		return nil, err
	}

	store, err := s.repo.GetStoreByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.StoreID != store.ID {
		logger.FromCtx(ctx).Warn("vendor touched foreign product",
			zap.Int64("vendor_id", vendorID),
			zap.Int64("product_id", productID),
		)
		return nil, ErrNotStoreOwner
	}
	return p, nil
}

func (s *service) price(ctx context.Context, products []Product) ([]Listing, error) {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	promos, err := s.repo.ListPromotionsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	listings := make([]Listing, 0, len(products))
	for _, p := range products {
		listings = append(listings, Listing{
			Product: p,
			Quote:   pricing.QuoteAt(p.Price, promos[p.ID], now),
		})
	}
	return listings, nil
}
