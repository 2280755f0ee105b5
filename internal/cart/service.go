package cart

import (
	"context"
	"errors"
	"time"

	"vinylstore-be/internal/clock"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/metrics"
	"vinylstore-be/internal/pricing"
	"vinylstore-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	AddItem(ctx context.Context, who identity.Identity, productID int64, quantity int) (*CartItem, error)

	// UpdateItem sets the quantity; below 1 the row is removed and nil is
	// returned. A removal is counted as op="remove", not "update".
	UpdateItem(ctx context.Context, who identity.Identity, cartItemID int64, quantity int) (*CartItem, error)
	RemoveItem(ctx context.Context, who identity.Identity, cartItemID int64) error

	// Snapshot prices the cart at the clock's current instant. Read-only.
	Snapshot(ctx context.Context, who identity.Identity) (*Snapshot, error)
}

type service struct {
	repo     Repository
	products product.Repository
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewService(repo Repository, products product.Repository, clk clock.Clock, m *metrics.Metrics) Service {
	return &service{repo: repo, products: products, clock: clk, metrics: m}
}

func (s *service) AddItem(
	ctx context.Context,
	who identity.Identity,
	productID int64,
	quantity int,
) (item *CartItem, err error) {

	defer func() { s.metrics.ObserveCartMutation("add", err) }()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)

	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable {
		return nil, ErrProductNotFound
	}
	if quantity > p.StockQuantity {
		log.Warn("requested quantity exceeds stock", zap.Int("stock", p.StockQuantity))
		return nil, ErrInsufficientStock
	}

	return s.repo.Add(ctx, customerID, productID, quantity)
}

func (s *service) UpdateItem(
	ctx context.Context,
	who identity.Identity,
	cartItemID int64,
	quantity int,
) (item *CartItem, err error) {

	if quantity < 1 {
		return nil, s.RemoveItem(ctx, who, cartItemID)
	}

	defer func() { s.metrics.ObserveCartMutation("update", err) }()

	current, err := s.owned(ctx, who, cartItemID)
	if err != nil {
		return nil, err
	}

	return s.repo.SetQuantity(ctx, current.ID, current.CustomerID, quantity)
}

func (s *service) RemoveItem(ctx context.Context, who identity.Identity, cartItemID int64) (err error) {
	defer func() { s.metrics.ObserveCartMutation("remove", err) }()

	current, err := s.owned(ctx, who, cartItemID)
	if err != nil {
		return err
	}

	return s.repo.Delete(ctx, current.ID, current.CustomerID)
}

func (s *service) Snapshot(ctx context.Context, who identity.Identity) (*Snapshot, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRows(ctx, customerID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	promos, err := s.products.ListPromotionsByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	return BuildSnapshot(customerID, rows, promos, s.clock.Now()), nil
}

// BuildSnapshot prices every row at now. Subtotals are unit price times
// quantity; the total is their sum.
func BuildSnapshot(
	customerID int64,
	rows []Row,
	promos map[int64][]pricing.Promotion,
	now time.Time,
) *Snapshot {

	snap := &Snapshot{
		CustomerID: customerID,
		Lines:      make([]Line, 0, len(rows)),
		Total:      decimal.Zero,
		TakenAt:    now,
	}

	for _, r := range rows {
		quote := pricing.QuoteAt(r.Product.Price, promos[r.ProductID], now)
		subtotal := quote.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))

		snap.Lines = append(snap.Lines, Line{
			CartItemID: r.ID,
			Product:    r.Product,
			Quantity:   r.Quantity,
			Quote:      quote,
			Subtotal:   subtotal,
		})
		snap.Total = snap.Total.Add(subtotal)
	}

	return snap
}

func (s *service) owned(ctx context.Context, who identity.Identity, cartItemID int64) (*CartItem, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetByID(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	if item.CustomerID != customerID {
		logger.FromCtx(ctx).Warn("customer touched foreign cart item",
			zap.Int64("customer_id", customerID),
			zap.Int64("cart_item_id", cartItemID),
		)
		return nil, ErrNotCartOwner
	}
	return item, nil
}
