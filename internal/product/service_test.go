package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"vinylstore-be/internal/apperr"
	"vinylstore-be/internal/clock"
	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Product), args.Error(1)
}

func (m *MockRepository) ListByStore(ctx context.Context, storeID int64) ([]Product, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Product), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, p *Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, p *Product, stock *int) error {
	args := m.Called(ctx, p, stock)
	return args.Error(0)
}

func (m *MockRepository) GetStoreByVendor(ctx context.Context, vendorID int64) (*Store, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Store), args.Error(1)
}

func (m *MockRepository) ListPromotions(ctx context.Context, productID int64) ([]pricing.Promotion, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.Promotion), args.Error(1)
}

func (m *MockRepository) ListPromotionsByProducts(ctx context.Context, ids []int64) (map[int64][]pricing.Promotion, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]pricing.Promotion), args.Error(1)
}

// --- Helpers ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func activePromo(id, productID int64, rate string) pricing.Promotion {
	return pricing.Promotion{
		ID:           id,
		ProductID:    productID,
		DiscountRate: dec(rate),
		StartTime:    testNow.Add(-24 * time.Hour),
		EndTime:      testNow.Add(24 * time.Hour),
		Status:       pricing.PromotionActive,
	}
}

func newTestService(repo *MockRepository) Service {
	return NewService(repo, clock.Fixed(testNow))
}

// --- Tests ---

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesActivePromotion", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, Price: dec("20.00"), IsAvailable: true}, nil)
		repo.On("ListPromotions", ctx, int64(1)).Return([]pricing.Promotion{activePromo(4, 1, "10")}, nil)

		l, err := svc.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "18.00", l.Quote.Price.StringFixed(2))
		require.NotNil(t, l.Quote.PromotionID)
		assert.Equal(t, int64(4), *l.Quote.PromotionID)
		repo.AssertExpectations(t)
	})

	t.Run("UnavailableIsNotFound", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, IsAvailable: false}, nil)

		_, err := svc.Get(ctx, 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetByID", ctx, int64(1)).Return(nil, errors.New("db error"))

		_, err := svc.Get(ctx, 1)
		assert.Error(t, err)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsLimitAndPrices", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		products := []Product{
			{ID: 1, Price: dec("20.00"), IsAvailable: true},
			{ID: 2, Price: dec("15.00"), IsAvailable: true},
		}
		repo.On("List", ctx, ListFilter{Limit: defaultListLimit}).Return(products, nil)
		repo.On("ListPromotionsByProducts", ctx, []int64{1, 2}).
			Return(map[int64][]pricing.Promotion{1: {activePromo(1, 1, "10")}}, nil)

		listings, err := svc.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, listings, 2)
		assert.Equal(t, "18.00", listings[0].Quote.Price.StringFixed(2))
		assert.Equal(t, "15.00", listings[1].Quote.Price.StringFixed(2))
	})

	t.Run("CapsLimit", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("List", ctx, ListFilter{Limit: maxListLimit}).Return([]Product{}, nil)
		repo.On("ListPromotionsByProducts", ctx, []int64{}).Return(map[int64][]pricing.Promotion{}, nil)

		_, err := svc.List(ctx, ListFilter{Limit: 1000})
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("InvalidPriceRange", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		lo, hi := dec("50"), dec("10")
		_, err := svc.List(ctx, ListFilter{MinPrice: &lo, MaxPrice: &hi})
		assert.ErrorIs(t, err, ErrInvalidPriceRange)
		repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3, VendorID: 9}, nil)
		repo.On("ListByStore", ctx, int64(3)).Return([]Product{{ID: 1, StoreID: 3, Price: dec("10.00")}}, nil)
		repo.On("ListPromotionsByProducts", ctx, []int64{1}).Return(map[int64][]pricing.Promotion{}, nil)

		d, err := svc.Dashboard(ctx, identity.Vendor(9))
		require.NoError(t, err)
		assert.Equal(t, int64(3), d.Store.ID)
		assert.Len(t, d.Products, 1)
	})

	t.Run("CustomerForbidden", func(t *testing.T) {
		svc := newTestService(new(MockRepository))

		_, err := svc.Dashboard(ctx, identity.Customer(1))
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	vendor := identity.Vendor(9)

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3, VendorID: 9}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(p *Product) bool {
			return p.StoreID == 3 && p.Name == "Blue" && p.IsAvailable && p.StockQuantity == 2
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*Product).ID = 10
		}).Return(nil)

		p, err := svc.Create(ctx, vendor, CreateInput{Name: "  Blue ", Price: dec("12.50"), StockQuantity: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(10), p.ID)
		repo.AssertExpectations(t)
	})

	t.Run("Validation", func(t *testing.T) {
		svc := newTestService(new(MockRepository))

		_, err := svc.Create(ctx, vendor, CreateInput{Name: " ", Price: dec("1")})
		assert.ErrorIs(t, err, ErrInvalidName)

		_, err = svc.Create(ctx, vendor, CreateInput{Name: "x", Price: dec("-1")})
		assert.ErrorIs(t, err, ErrInvalidPrice)

		_, err = svc.Create(ctx, vendor, CreateInput{Name: "x", Price: dec("1"), StockQuantity: -1})
		assert.ErrorIs(t, err, ErrInvalidStock)
	})

	t.Run("Anonymous", func(t *testing.T) {
		svc := newTestService(new(MockRepository))

		_, err := svc.Create(ctx, identity.Identity{}, CreateInput{Name: "x"})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	vendor := identity.Vendor(9)

	t.Run("PartialEdit", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3}, nil)
		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, StoreID: 3, Name: "Old", Price: dec("10.00"), StockQuantity: 4}, nil)
		repo.On("Update", ctx, mock.AnythingOfType("*product.Product"), mock.MatchedBy(func(stock *int) bool {
			return stock != nil && *stock == 0
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*Product).StockQuantity = *args.Get(2).(*int)
		}).Return(nil)

		stock := 0
		p, err := svc.Update(ctx, vendor, 1, UpdateInput{StockQuantity: &stock})
		require.NoError(t, err)
		assert.Equal(t, "Old", p.Name)
		assert.Equal(t, 0, p.StockQuantity)
	})

	t.Run("RenameLeavesStockAlone", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3}, nil)
		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, StoreID: 3, Name: "Old", StockQuantity: 4}, nil)
		repo.On("Update", ctx, mock.AnythingOfType("*product.Product"), (*int)(nil)).
			Run(func(args mock.Arguments) {
				// a checkout sold one unit since the product was loaded
				args.Get(1).(*Product).StockQuantity = 3
			}).Return(nil)

		name := "New"
		p, err := svc.Update(ctx, vendor, 1, UpdateInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "New", p.Name)
		assert.Equal(t, 3, p.StockQuantity)
		repo.AssertExpectations(t)
	})

	t.Run("ForeignStore", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3}, nil)
		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, StoreID: 4}, nil)

		_, err := svc.Update(ctx, vendor, 1, UpdateInput{})
		assert.ErrorIs(t, err, ErrNotStoreOwner)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NegativeStock", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("GetStoreByVendor", ctx, int64(9)).Return(&Store{ID: 3}, nil)
		repo.On("GetByID", ctx, int64(1)).Return(&Product{ID: 1, StoreID: 3}, nil)

		stock := -2
		_, err := svc.Update(ctx, vendor, 1, UpdateInput{StockQuantity: &stock})
		assert.ErrorIs(t, err, ErrInvalidStock)
	})
}
