package services

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, p *models.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, p *models.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Search(ctx context.Context, filters repositories.ProductSearchFilters) ([]*models.Product, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Product), args.Int(1), args.Error(2)
}

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPriceChanged(ctx context.Context, event events.PriceChanged) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func newTestProductService() (*ProductService, *MockProductRepository, *MockCategoryRepository, *MockPublisher) {
	products := new(MockProductRepository)
	categories := new(MockCategoryRepository)
	publisher := new(MockPublisher)
	return NewProductService(products, categories, publisher, nil), products, categories, publisher
}

func validProductRequest() *models.ProductRequest {
	return &models.ProductRequest{
		Name:        "Espresso Machine",
		Description: "15 bar pump",
		Quantity:    4,
		Price:       decimal.NewFromInt(250),
		Discount:    decimal.NewFromInt(20),
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, products, categories, _ := newTestProductService()
		categories.On("GetByID", ctx, int64(2)).Return(&models.Category{ID: 2}, nil)
		products.On("GetByName", ctx, "Espresso Machine").Return(nil, models.ErrRecordNotFound)
		products.On("Create", ctx, mock.AnythingOfType("*models.Product")).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Product).ID = 11
		}).Return(nil)

		product, err := service.CreateProduct(ctx, 2, validProductRequest())
		require.NoError(t, err)

		assert.Equal(t, int64(11), product.ID)
		assert.Equal(t, int64(2), product.CategoryID)
		assert.Equal(t, "default.png", product.Image)
		assert.True(t, product.SpecialPrice.Equal(decimal.NewFromInt(200)))
		products.AssertExpectations(t)
	})

	t.Run("invalid request", func(t *testing.T) {
		service, products, _, _ := newTestProductService()
		req := validProductRequest()
		req.Name = "TV"

		_, err := service.CreateProduct(ctx, 2, req)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.EqualError(t, err, "product name must contain at least 3 characters")
		products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown category", func(t *testing.T) {
		service, _, categories, _ := newTestProductService()
		categories.On("GetByID", ctx, int64(9)).Return(nil, models.ErrRecordNotFound)

		_, err := service.CreateProduct(ctx, 9, validProductRequest())
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.EqualError(t, err, "Category not found with categoryId: 9")
	})

	t.Run("duplicate name", func(t *testing.T) {
		service, products, categories, _ := newTestProductService()
		categories.On("GetByID", ctx, int64(2)).Return(&models.Category{ID: 2}, nil)
		products.On("GetByName", ctx, "Espresso Machine").Return(&models.Product{ID: 3}, nil)

		_, err := service.CreateProduct(ctx, 2, validProductRequest())
		assert.ErrorIs(t, err, models.ErrConflict)
		products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestProductService_UpdateProduct_PublishesPriceChange(t *testing.T) {
	ctx := context.Background()
	service, products, _, publisher := newTestProductService()

	existing := &models.Product{
		ID:       5,
		Name:     "Espresso Machine",
		Quantity: 4,
		Price:    decimal.NewFromInt(300),
		Discount: decimal.NewFromInt(20),
	}
	existing.ApplyPricing()

	products.On("GetByID", ctx, int64(5)).Return(existing, nil)
	products.On("Update", ctx, mock.AnythingOfType("*models.Product")).Return(nil)
	publisher.On("PublishPriceChanged", ctx, mock.MatchedBy(func(e events.PriceChanged) bool {
		return e.ProductID == 5 &&
			e.OldPrice.Equal(decimal.NewFromInt(300)) &&
			e.NewPrice.Equal(decimal.NewFromInt(250)) &&
			e.SpecialPrice.Equal(decimal.NewFromInt(200))
	})).Return(nil)

	product, err := service.UpdateProduct(ctx, 5, validProductRequest())
	require.NoError(t, err)
	assert.True(t, product.SpecialPrice.Equal(decimal.NewFromInt(200)))

	publisher.AssertExpectations(t)
}

func TestProductService_UpdateProduct_SamePriceDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	service, products, _, publisher := newTestProductService()

	existing := &models.Product{ID: 5, Name: "Old name", Price: decimal.NewFromInt(250), Discount: decimal.NewFromInt(20)}
	products.On("GetByID", ctx, int64(5)).Return(existing, nil)
	products.On("Update", ctx, mock.AnythingOfType("*models.Product")).Return(nil)

	product, err := service.UpdateProduct(ctx, 5, validProductRequest())
	require.NoError(t, err)
	assert.Equal(t, "Espresso Machine", product.Name)

	publisher.AssertNotCalled(t, "PublishPriceChanged", mock.Anything, mock.Anything)
}

func TestProductService_UpdateProduct_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	service, products, _, publisher := newTestProductService()

	existing := &models.Product{ID: 5, Name: "Espresso Machine", Price: decimal.NewFromInt(10)}
	products.On("GetByID", ctx, int64(5)).Return(existing, nil)
	products.On("Update", ctx, mock.Anything).Return(nil)
	publisher.On("PublishPriceChanged", ctx, mock.Anything).Return(errors.New("broker down"))

	_, err := service.UpdateProduct(ctx, 5, validProductRequest())
	assert.NoError(t, err)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("referenced by carts", func(t *testing.T) {
		service, products, _, _ := newTestProductService()
		products.On("GetByID", ctx, int64(5)).Return(&models.Product{ID: 5}, nil)
		products.On("Delete", ctx, int64(5)).Return(models.NewConflict("Product 5 is still referenced by a cart"))

		_, err := service.DeleteProduct(ctx, 5)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("not found", func(t *testing.T) {
		service, products, _, _ := newTestProductService()
		products.On("GetByID", ctx, int64(6)).Return(nil, models.ErrRecordNotFound)

		_, err := service.DeleteProduct(ctx, 6)
		assert.EqualError(t, err, "Product not found with productId: 6")
	})

	t.Run("success returns deleted product", func(t *testing.T) {
		service, products, _, _ := newTestProductService()
		products.On("GetByID", ctx, int64(7)).Return(&models.Product{ID: 7, Name: "Grinder"}, nil)
		products.On("Delete", ctx, int64(7)).Return(nil)

		product, err := service.DeleteProduct(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Grinder", product.Name)
	})
}

func TestProductService_ListProducts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		query       PageQuery
		total       int
		wantFilters repositories.ProductSearchFilters
		wantPages   int
		wantLast    bool
		wantErr     error
	}{
		{
			name:        "defaults",
			query:       PageQuery{},
			total:       120,
			wantFilters: repositories.ProductSearchFilters{Limit: 50, Offset: 0, SortBy: "id"},
			wantPages:   3,
			wantLast:    false,
		},
		{
			name:        "last page sorted by price descending",
			query:       PageQuery{PageNumber: 2, PageSize: 10, SortBy: "price", SortOrder: "DESC"},
			total:       25,
			wantFilters: repositories.ProductSearchFilters{Limit: 10, Offset: 20, SortBy: "price", SortDesc: true},
			wantPages:   3,
			wantLast:    true,
		},
		{
			name:    "unknown sort key",
			query:   PageQuery{SortBy: "password"},
			wantErr: models.ErrInvalidInput,
		},
		{
			name:    "negative page",
			query:   PageQuery{PageNumber: -1},
			wantErr: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, products, _, _ := newTestProductService()
			products.On("Search", ctx, tt.wantFilters).Return([]*models.Product{{ID: 1}}, tt.total, nil)

			resp, err := service.ListProducts(ctx, tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, resp.TotalElements)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
			assert.Equal(t, tt.wantLast, resp.LastPage)
			assert.Equal(t, tt.wantFilters.Limit, resp.PageSize)
			products.AssertExpectations(t)
		})
	}
}

func TestProductService_ListByCategory_UnknownCategory(t *testing.T) {
	ctx := context.Background()
	service, products, categories, _ := newTestProductService()
	categories.On("GetByID", ctx, int64(4)).Return(nil, models.ErrRecordNotFound)

	_, err := service.ListByCategory(ctx, 4, PageQuery{})
	assert.ErrorIs(t, err, models.ErrNotFound)
	products.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestProductService_SearchByKeyword(t *testing.T) {
	ctx := context.Background()
	service, products, _, _ := newTestProductService()

	products.On("Search", ctx, repositories.ProductSearchFilters{Keyword: "lamp", Limit: 50, SortBy: "id"}).
		Return([]*models.Product{}, 0, nil)

	resp, err := service.SearchByKeyword(ctx, "  lamp ", PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
	assert.Equal(t, 0, resp.TotalPages)

	_, err = service.SearchByKeyword(ctx, " ", PageQuery{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestProductService_PriceChangeReachesCarts(t *testing.T) {
	store := repositories.NewMemoryStore()
	carts := NewCartService(store.Carts, store.Products, nil, nil)
	products := NewProductService(store.Products, store.Categories, events.NewInlinePublisher(carts), nil)
	ctx := context.Background()

	category := &models.Category{Name: "Kitchen", Slug: "kitchen"}
	require.NoError(t, store.Categories.Create(ctx, category))

	product, err := products.CreateProduct(ctx, category.ID, validProductRequest())
	require.NoError(t, err)

	_, err = carts.AddToCart(ctx, 1, product.ID, 2)
	require.NoError(t, err)

	req := validProductRequest()
	req.Discount = decimal.Zero
	_, err = products.UpdateProduct(ctx, product.ID, req)
	require.NoError(t, err)

	snapshot, err := carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, snapshot.TotalPrice.Equal(decimal.NewFromInt(500)), "got %s", snapshot.TotalPrice)

	_, err = products.DeleteProduct(ctx, product.ID)
	assert.ErrorIs(t, err, models.ErrConflict)
}
