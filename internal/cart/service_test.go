package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"vinylstore-be/internal/apperr"
	"vinylstore-be/internal/clock"
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

func (m *MockRepository) Add(ctx context.Context, customerID, productID int64, quantity int) (*CartItem, error) {
	args := m.Called(ctx, customerID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*CartItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) SetQuantity(ctx context.Context, id, customerID int64, quantity int) (*CartItem, error) {
	args := m.Called(ctx, id, customerID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CartItem), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id, customerID int64) error {
	args := m.Called(ctx, id, customerID)
	return args.Error(0)
}

func (m *MockRepository) ListRows(ctx context.Context, customerID int64) ([]Row, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Row), args.Error(1)
}

// MockProductRepository is a mock for the product repository
type MockProductRepository struct {
	product.Repository
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) ListPromotionsByProducts(ctx context.Context, ids []int64) (map[int64][]pricing.Promotion, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]pricing.Promotion), args.Error(1)
}

var (
	testNow  = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	customer = identity.Customer(1)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(repo *MockRepository, products *MockProductRepository) Service {
	return NewService(repo, products, clock.Fixed(testNow), nil)
}

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, products := new(MockRepository), new(MockProductRepository)
		svc := newTestService(repo, products)

		products.On("GetByID", ctx, int64(10)).Return(&product.Product{ID: 10, StockQuantity: 5, IsAvailable: true}, nil)
		repo.On("Add", ctx, int64(1), int64(10), 2).Return(&CartItem{ID: 3, Quantity: 2}, nil)

		item, err := svc.AddItem(ctx, customer, 10, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), item.ID)
		repo.AssertExpectations(t)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockProductRepository))

		_, err := svc.AddItem(ctx, customer, 10, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("ProductMissing", func(t *testing.T) {
		products := new(MockProductRepository)
		svc := newTestService(new(MockRepository), products)

		products.On("GetByID", ctx, int64(10)).Return(nil, product.ErrProductNotFound)

		_, err := svc.AddItem(ctx, customer, 10, 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("ProductUnavailable", func(t *testing.T) {
		products := new(MockProductRepository)
		svc := newTestService(new(MockRepository), products)

		products.On("GetByID", ctx, int64(10)).Return(&product.Product{ID: 10, StockQuantity: 5}, nil)

		_, err := svc.AddItem(ctx, customer, 10, 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("ExceedsStock", func(t *testing.T) {
		repo, products := new(MockRepository), new(MockProductRepository)
		svc := newTestService(repo, products)

		products.On("GetByID", ctx, int64(10)).Return(&product.Product{ID: 10, StockQuantity: 1, IsAvailable: true}, nil)

		_, err := svc.AddItem(ctx, customer, 10, 2)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CombinedExceedsStock", func(t *testing.T) {
		repo, products := new(MockRepository), new(MockProductRepository)
		svc := newTestService(repo, products)

		products.On("GetByID", ctx, int64(10)).Return(&product.Product{ID: 10, StockQuantity: 3, IsAvailable: true}, nil)
		repo.On("Add", ctx, int64(1), int64(10), 2).Return(nil, ErrInsufficientStock)

		_, err := svc.AddItem(ctx, customer, 10, 2)
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("VendorForbidden", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockProductRepository))

		_, err := svc.AddItem(ctx, identity.Vendor(1), 10, 1)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestService_UpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("SetsQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 1}, nil)
		repo.On("SetQuantity", ctx, int64(3), int64(1), 4).Return(&CartItem{ID: 3, Quantity: 4}, nil)

		item, err := svc.UpdateItem(ctx, customer, 3, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, item.Quantity)
	})

	t.Run("ZeroDeletes", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 1}, nil)
		repo.On("Delete", ctx, int64(3), int64(1)).Return(nil)

		item, err := svc.UpdateItem(ctx, customer, 3, 0)
		assert.NoError(t, err)
		assert.Nil(t, item)
		repo.AssertExpectations(t)
	})

	t.Run("ZeroCountsAsRemove", func(t *testing.T) {
		repo := new(MockRepository)
		m := metrics.New(prometheus.NewRegistry())
		svc := NewService(repo, new(MockProductRepository), clock.Fixed(testNow), m)

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 1}, nil)
		repo.On("Delete", ctx, int64(3), int64(1)).Return(nil)
		repo.On("SetQuantity", ctx, int64(3), int64(1), 2).Return(&CartItem{ID: 3, Quantity: 2}, nil)

		_, err := svc.UpdateItem(ctx, customer, 3, -1)
		require.NoError(t, err)
		_, err = svc.UpdateItem(ctx, customer, 3, 2)
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("remove", "ok")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("update", "ok")))
	})

	t.Run("OverStock", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 1}, nil)
		repo.On("SetQuantity", ctx, int64(3), int64(1), 99).Return(nil, ErrInsufficientStock)

		_, err := svc.UpdateItem(ctx, customer, 3, 99)
		assert.ErrorIs(t, err, ErrInsufficientStock)
	})
}

func TestService_RemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 1}, nil)
		repo.On("Delete", ctx, int64(3), int64(1)).Return(nil)

		assert.NoError(t, svc.RemoveItem(ctx, customer, 3))
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(nil, ErrCartItemNotFound)

		err := svc.RemoveItem(ctx, customer, 3)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("Forbidden", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProductRepository))

		repo.On("GetByID", ctx, int64(3)).Return(&CartItem{ID: 3, CustomerID: 2}, nil)

		err := svc.RemoveItem(ctx, customer, 3)
		assert.ErrorIs(t, err, ErrNotCartOwner)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_Snapshot(t *testing.T) {
	ctx := context.Background()

	repo, products := new(MockRepository), new(MockProductRepository)
	svc := newTestService(repo, products)

	rows := []Row{
		{CartItem: CartItem{ID: 1, CustomerID: 1, ProductID: 10, Quantity: 3}, Product: product.Product{ID: 10, Price: dec("20.00")}},
		{CartItem: CartItem{ID: 2, CustomerID: 1, ProductID: 11, Quantity: 1}, Product: product.Product{ID: 11, Price: dec("9.99")}},
	}
	promo := pricing.Promotion{
		ID:           1,
		ProductID:    10,
		DiscountRate: dec("10"),
		StartTime:    testNow.Add(-24 * time.Hour),
		EndTime:      testNow.Add(24 * time.Hour),
		Status:       pricing.PromotionActive,
	}

	repo.On("ListRows", ctx, int64(1)).Return(rows, nil)
	products.On("ListPromotionsByProducts", ctx, []int64{10, 11}).
		Return(map[int64][]pricing.Promotion{10: {promo}}, nil)

	snap, err := svc.Snapshot(ctx, customer)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "18.00", snap.Lines[0].Quote.Price.StringFixed(2))
	assert.Equal(t, "54.00", snap.Lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "9.99", snap.Lines[1].Subtotal.StringFixed(2))
	assert.Equal(t, "63.99", snap.Total.StringFixed(2))
	assert.Equal(t, testNow, snap.TakenAt)
}

func TestService_Snapshot_Empty(t *testing.T) {
	ctx := context.Background()
	repo, products := new(MockRepository), new(MockProductRepository)
	svc := newTestService(repo, products)

	repo.On("ListRows", ctx, int64(1)).Return([]Row{}, nil)
	products.On("ListPromotionsByProducts", ctx, []int64{}).Return(map[int64][]pricing.Promotion{}, nil)

	snap, err := svc.Snapshot(ctx, customer)
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.True(t, snap.Total.IsZero())
}

func TestService_Snapshot_RepoError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockProductRepository))

	repo.On("ListRows", ctx, int64(1)).Return(nil, errors.New("db error"))

	_, err := svc.Snapshot(ctx, customer)
	assert.Error(t, err)
}
