package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vinylstore-be/internal/apperr"
	"vinylstore-be/internal/cart"
	"vinylstore-be/internal/events"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/metrics"
	"vinylstore-be/internal/pricing"
	"vinylstore-be/internal/product"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Order), args.Error(1)
}

func (m *MockRepository) ListVendorItems(ctx context.Context, vendorID int64) ([]VendorItem, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VendorItem), args.Error(1)
}

func (m *MockRepository) AppendStatus(ctx context.Context, vendorID, orderItemID int64, change StatusChange) (*StatusRecord, error) {
	args := m.Called(ctx, vendorID, orderItemID, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StatusRecord), args.Error(1)
}

// MockCartService only implements Snapshot
type MockCartService struct {
	cart.Service
	mock.Mock
}

func (m *MockCartService) Snapshot(ctx context.Context, who identity.Identity) (*cart.Snapshot, error) {
	args := m.Called(ctx, who)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderCreated(ctx context.Context, evt events.OrderCreated) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

var customer = identity.Customer(1)

func pressing(id int64, name, price string) product.Product {
	return product.Product{
		ID:            id,
		StoreID:       5,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
		IsAvailable:   true,
	}
}

// snapshot prices rows the same way the cart service does.
func snapshot(customerID int64, rows ...cart.Row) *cart.Snapshot {
	return cart.BuildSnapshot(customerID, rows, nil, time.Now())
}

func row(cartItemID int64, p product.Product, qty int) cart.Row {
	return cart.Row{
		CartItem: cart.CartItem{ID: cartItemID, CustomerID: 1, ProductID: p.ID, Quantity: qty},
		Product:  p,
	}
}

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()

	// 20.00 list price with a 10% promotion, three units
	t.Run("FreezesDiscountedPrices", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		pub := new(MockPublisher)
		svc := NewService(repo, carts, pub, nil)

		now := time.Now()
		p := pressing(10, "Kind of Blue", "20.00")
		promos := map[int64][]pricing.Promotion{10: {{
			ID:           1,
			ProductID:    10,
			DiscountRate: decimal.NewFromInt(10),
			StartTime:    now.Add(-time.Hour),
			EndTime:      now.Add(time.Hour),
			Status:       pricing.PromotionActive,
		}}}
		snap := cart.BuildSnapshot(1, []cart.Row{row(7, p, 3)}, promos, now)
		carts.On("Snapshot", ctx, customer).Return(snap, nil)

		repo.On("CreateOrderTx", ctx, mock.MatchedBy(func(params CreateOrderParams) bool {
			return params.CustomerID == 1 &&
				params.ShippingAddress == "1 Abbey Road" &&
				params.TotalAmount.Equal(decimal.RequireFromString("54.00")) &&
				len(params.Lines) == 1 &&
				params.Lines[0].CartItemID == 7 &&
				params.Lines[0].PaidPrice.Equal(decimal.RequireFromString("18.00")) &&
				params.PricedAt.Equal(now)
		})).Return(&Order{
			ID:          100,
			CustomerID:  1,
			TotalAmount: decimal.RequireFromString("54.00"),
			Items: []OrderItem{{
				ID: 200, OrderID: 100, ProductID: 10, Quantity: 3,
				PaidPrice: decimal.RequireFromString("18.00"), CurrentStatus: StatusProcessing,
			}},
		}, nil)

		pub.On("PublishOrderCreated", ctx, mock.MatchedBy(func(evt events.OrderCreated) bool {
			return evt.OrderID == 100 && evt.TotalAmount == "54.00" &&
				len(evt.Items) == 1 && evt.Items[0].PaidPrice == "18.00"
		})).Return(nil)

		o, err := svc.Checkout(ctx, customer, "  1 Abbey Road  ")
		require.NoError(t, err)
		assert.Equal(t, int64(100), o.ID)
		assert.Equal(t, "Kind of Blue", o.Items[0].ProductName)

		sum := decimal.Zero
		for _, it := range o.Items {
			sum = sum.Add(it.Subtotal())
		}
		assert.True(t, sum.Equal(o.TotalAmount))

		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		svc := NewService(repo, carts, nil, nil)

		carts.On("Snapshot", ctx, customer).Return(snapshot(1), nil)

		_, err := svc.Checkout(ctx, customer, "addr")
		assert.ErrorIs(t, err, ErrEmptyCart)
		repo.AssertNotCalled(t, "CreateOrderTx", mock.Anything, mock.Anything)
	})

	t.Run("BlankAddress", func(t *testing.T) {
		carts := new(MockCartService)
		svc := NewService(new(MockRepository), carts, nil, nil)

		_, err := svc.Checkout(ctx, customer, "   ")
		assert.ErrorIs(t, err, ErrInvalidAddress)
		carts.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	})

	t.Run("VendorCannotCheckout", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCartService), nil, nil)

		_, err := svc.Checkout(ctx, identity.Vendor(9), "addr")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("InsufficientStockPropagates", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc := NewService(repo, carts, nil, m)

		carts.On("Snapshot", ctx, customer).
			Return(snapshot(1, row(7, pressing(10, "Kind of Blue", "20.00"), 1)), nil)
		repo.On("CreateOrderTx", ctx, mock.Anything).Return(nil, ErrInsufficientStock)

		_, err := svc.Checkout(ctx, customer, "addr")
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("insufficient_stock")))
	})

	t.Run("PriceChangedPropagates", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		m := metrics.New(prometheus.NewRegistry())
		svc := NewService(repo, carts, nil, m)

		carts.On("Snapshot", ctx, customer).
			Return(snapshot(1, row(7, pressing(10, "Kind of Blue", "20.00"), 1)), nil)
		repo.On("CreateOrderTx", ctx, mock.Anything).Return(nil, ErrPriceChanged)

		_, err := svc.Checkout(ctx, customer, "addr")
		assert.ErrorIs(t, err, ErrPriceChanged)
		assert.Equal(t, apperr.KindCheckoutFailed, apperr.KindOf(err))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("checkout_failed")))
	})

	t.Run("PublishFailureKeepsOrder", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		pub := new(MockPublisher)
		svc := NewService(repo, carts, pub, nil)

		carts.On("Snapshot", ctx, customer).
			Return(snapshot(1, row(7, pressing(10, "Kind of Blue", "20.00"), 1)), nil)
		repo.On("CreateOrderTx", ctx, mock.Anything).
			Return(&Order{ID: 100, CustomerID: 1, TotalAmount: decimal.RequireFromString("20.00")}, nil)
		pub.On("PublishOrderCreated", ctx, mock.Anything).Return(errors.New("broker down"))

		o, err := svc.Checkout(ctx, customer, "addr")
		require.NoError(t, err)
		assert.Equal(t, int64(100), o.ID)
	})

	t.Run("TwoLinesTotal", func(t *testing.T) {
		repo := new(MockRepository)
		carts := new(MockCartService)
		svc := NewService(repo, carts, nil, nil)

		snap := snapshot(1,
			row(7, pressing(10, "Kind of Blue", "18.00"), 3),
			row(8, pressing(11, "Blue Train", "9.99"), 1),
		)
		carts.On("Snapshot", ctx, customer).Return(snap, nil)
		repo.On("CreateOrderTx", ctx, mock.MatchedBy(func(params CreateOrderParams) bool {
			return params.TotalAmount.Equal(decimal.RequireFromString("63.99")) && len(params.Lines) == 2
		})).Return(&Order{ID: 101, CustomerID: 1}, nil)

		_, err := svc.Checkout(ctx, customer, "addr")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

// stockRepository is an in-memory Repository that decrements stock under a
// lock, standing in for the serializable transaction.
type stockRepository struct {
	MockRepository
	mu     sync.Mutex
	stock  map[int64]int
	nextID int64
}

func (r *stockRepository) CreateOrderTx(_ context.Context, params CreateOrderParams) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range params.Lines {
		if r.stock[line.ProductID] < line.Quantity {
			return nil, ErrInsufficientStock
		}
	}
	for _, line := range params.Lines {
		r.stock[line.ProductID] -= line.Quantity
	}
	r.nextID++
	return &Order{ID: r.nextID, CustomerID: params.CustomerID, TotalAmount: params.TotalAmount}, nil
}

type snapshotCarts struct {
	cart.Service
	p product.Product
}

func (c snapshotCarts) Snapshot(_ context.Context, who identity.Identity) (*cart.Snapshot, error) {
	snap := cart.BuildSnapshot(who.ID, []cart.Row{{
		CartItem: cart.CartItem{ID: who.ID, CustomerID: who.ID, ProductID: c.p.ID, Quantity: 1},
		Product:  c.p,
	}}, nil, time.Now())
	return snap, nil
}

// One unit left and two customers check out at once. The storage-level
// classification of the losing checkout is pinned in repository_test.
func TestService_Checkout_LastUnitRace(t *testing.T) {
	ctx := context.Background()

	p := pressing(10, "Kind of Blue", "20.00")
	p.StockQuantity = 1
	repo := &stockRepository{stock: map[int64]int{10: 1}}
	svc := NewService(repo, snapshotCarts{p: p}, nil, nil)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, identity.Customer(int64(i+1)), "addr")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, repo.stock[10])
}

func TestService_GetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Owner", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, nil, nil)

		repo.On("GetOrder", ctx, int64(100)).Return(&Order{ID: 100, CustomerID: 1}, nil)

		o, err := svc.GetOrder(ctx, customer, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), o.ID)
	})

	t.Run("ForeignOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, nil, nil)

		repo.On("GetOrder", ctx, int64(100)).Return(&Order{ID: 100, CustomerID: 2}, nil)

		_, err := svc.GetOrder(ctx, customer, 100)
		assert.ErrorIs(t, err, ErrNotOrderOwner)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("Anonymous", func(t *testing.T) {
		svc := NewService(new(MockRepository), nil, nil, nil)

		_, err := svc.GetOrder(ctx, identity.Identity{}, 100)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, nil, nil, nil)

	repo.On("ListByCustomer", ctx, int64(1)).Return([]Order{{ID: 101}, {ID: 100}}, nil)

	orders, err := svc.ListOrders(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestService_AdvanceItemStatus(t *testing.T) {
	ctx := context.Background()
	vendor := identity.Vendor(9)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc := NewService(repo, nil, nil, m)

		change, err := NewStatusChange(StatusShipping, "")
		require.NoError(t, err)
		repo.On("AppendStatus", ctx, int64(9), int64(200), change).
			Return(&StatusRecord{ID: 301, OrderItemID: 200, Status: StatusShipping}, nil)

		rec, err := svc.AdvanceItemStatus(ctx, vendor, 200, change)
		require.NoError(t, err)
		assert.Equal(t, StatusShipping, rec.Status)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("Shipping")))
	})

	t.Run("ZeroChange", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, nil, nil)

		_, err := svc.AdvanceItemStatus(ctx, vendor, 200, StatusChange{})
		assert.ErrorIs(t, err, ErrInvalidStatus)
		repo.AssertNotCalled(t, "AppendStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CustomerForbidden", func(t *testing.T) {
		svc := NewService(new(MockRepository), nil, nil, nil)

		change, _ := NewStatusChange(StatusHolding, "")
		_, err := svc.AdvanceItemStatus(ctx, customer, 200, change)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, nil, nil)

		change, _ := NewStatusChange(StatusShipping, "")
		repo.On("AppendStatus", ctx, int64(9), int64(200), change).Return(nil, ErrInvalidTransition)

		_, err := svc.AdvanceItemStatus(ctx, vendor, 200, change)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestService_ListVendorItems(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, nil, nil, nil)

	repo.On("ListVendorItems", ctx, int64(9)).Return([]VendorItem{{CustomerID: 1}}, nil)

	items, err := svc.ListVendorItems(ctx, identity.Vendor(9))
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
