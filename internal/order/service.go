package order

import (
	"context"
	"strings"

	"vinylstore-be/internal/cart"
	"vinylstore-be/internal/events"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/metrics"

	"go.uber.org/zap"
)

type Service interface {
	// Checkout turns the customer's cart into an order priced at this instant.
	Checkout(ctx context.Context, who identity.Identity, shippingAddress string) (*Order, error)
	GetOrder(ctx context.Context, who identity.Identity, orderID int64) (*Order, error)
	ListOrders(ctx context.Context, who identity.Identity) ([]Order, error)

	AdvanceItemStatus(ctx context.Context, who identity.Identity, orderItemID int64, change StatusChange) (*StatusRecord, error)
	ListVendorItems(ctx context.Context, who identity.Identity) ([]VendorItem, error)
}

type service struct {
	repo      Repository
	carts     cart.Service
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewService(repo Repository, carts cart.Service, publisher events.Publisher, m *metrics.Metrics) Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &service{
		repo:      repo,
		carts:     carts,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *service) Checkout(
	ctx context.Context,
	who identity.Identity,
	shippingAddress string,
) (o *Order, err error) {

	timer := metrics.StartTimer()
	defer func() { s.metrics.ObserveCheckout(err, timer.Duration()) }()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Stringer("identity", who),
	)

	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}

	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return nil, ErrInvalidAddress
	}

	// 1. Snapshot the cart with effective prices
	snap, err := s.carts.Snapshot(ctx, who)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		log.Warn("checkout with empty cart")
		return nil, ErrEmptyCart
	}

	// 2. Freeze prices and total
	params := CreateOrderParams{
		CustomerID:      customerID,
		ShippingAddress: shippingAddress,
		TotalAmount:     snap.Total,
		Lines:           make([]CheckoutLine, 0, len(snap.Lines)),
		PricedAt:        snap.TakenAt,
	}
	for _, line := range snap.Lines {
		params.Lines = append(params.Lines, CheckoutLine{
			CartItemID: line.CartItemID,
			ProductID:  line.Product.ID,
			Quantity:   line.Quantity,
			PaidPrice:  line.Quote.Price,
		})
	}

	// 3-6. Re-check prices and persist atomically
	o, err = s.repo.CreateOrderTx(ctx, params)
	if err != nil {
		log.Warn("checkout aborted", zap.Error(err))
		return nil, err
	}

	for i := range o.Items {
		for _, line := range snap.Lines {
			if line.Product.ID == o.Items[i].ProductID {
				o.Items[i].ProductName = line.Product.Name
				break
			}
		}
	}

	if err := s.publisher.PublishOrderCreated(ctx, orderCreatedEvent(o)); err != nil {
		log.Error("failed to publish order event", zap.Int64("order_id", o.ID), zap.Error(err))
	}

	log.Info("checkout completed",
		zap.Int64("order_id", o.ID),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

func orderCreatedEvent(o *Order) events.OrderCreated {
	evt := events.OrderCreated{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       make([]events.OrderCreatedItem, 0, len(o.Items)),
		CreatedAt:   o.CreatedAt,
	}
	for _, it := range o.Items {
		evt.Items = append(evt.Items, events.OrderCreatedItem{
			OrderItemID: it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			PaidPrice:   it.PaidPrice.StringFixed(2),
		})
	}
	return evt
}

func (s *service) GetOrder(ctx context.Context, who identity.Identity, orderID int64) (*Order, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		logger.FromCtx(ctx).Warn("customer requested foreign order",
			zap.Int64("customer_id", customerID),
			zap.Int64("order_id", orderID),
		)
		return nil, ErrNotOrderOwner
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, who identity.Identity) ([]Order, error) {
	customerID, err := who.RequireCustomer()
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *service) AdvanceItemStatus(
	ctx context.Context,
	who identity.Identity,
	orderItemID int64,
	change StatusChange,
) (*StatusRecord, error) {

	vendorID, err := who.RequireVendor()
	if err != nil {
		return nil, err
	}

	// The zero StatusChange carries no status.
	if !change.Status().Valid() {
		return nil, ErrInvalidStatus
	}

	rec, err := s.repo.AppendStatus(ctx, vendorID, orderItemID, change)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveStatusTransition(string(rec.Status))
	return rec, nil
}

func (s *service) ListVendorItems(ctx context.Context, who identity.Identity) ([]VendorItem, error) {
	vendorID, err := who.RequireVendor()
	if err != nil {
		return nil, err
	}
	return s.repo.ListVendorItems(ctx, vendorID)
}
