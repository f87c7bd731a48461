package handlers

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockCartService is a mock implementation of services.CartServiceInterface
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartSnapshot, error) {
	args := m.Called(ctx, userID, productID, quantity)
	return snapshotArg(args)
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, userID, productID int64, delta int) (*models.CartSnapshot, error) {
	args := m.Called(ctx, userID, productID, delta)
	return snapshotArg(args)
}

func (m *MockCartService) RemoveFromCart(ctx context.Context, cartID, productID int64) (string, error) {
	args := m.Called(ctx, cartID, productID)
	return args.String(0), args.Error(1)
}

func (m *MockCartService) ReconcileCartItem(ctx context.Context, cartID, productID int64) error {
	return m.Called(ctx, cartID, productID).Error(0)
}

func (m *MockCartService) ReconcileProduct(ctx context.Context, productID int64) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockCartService) ListAllCarts(ctx context.Context) ([]*models.CartSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CartSnapshot), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID int64) (*models.CartSnapshot, error) {
	args := m.Called(ctx, userID)
	return snapshotArg(args)
}

func snapshotArg(args mock.Arguments) (*models.CartSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartSnapshot), args.Error(1)
}

// MockProductService is a mock implementation of services.ProductServiceInterface
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) CreateProduct(ctx context.Context, categoryID int64, req *models.ProductRequest) (*models.Product, error) {
	args := m.Called(ctx, categoryID, req)
	return productArg(args)
}

func (m *MockProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	args := m.Called(ctx, productID)
	return productArg(args)
}

func (m *MockProductService) ListProducts(ctx context.Context, q services.PageQuery) (*models.ProductResponse, error) {
	args := m.Called(ctx, q)
	return pageArg(args)
}

func (m *MockProductService) ListByCategory(ctx context.Context, categoryID int64, q services.PageQuery) (*models.ProductResponse, error) {
	args := m.Called(ctx, categoryID, q)
	return pageArg(args)
}

func (m *MockProductService) SearchByKeyword(ctx context.Context, keyword string, q services.PageQuery) (*models.ProductResponse, error) {
	args := m.Called(ctx, keyword, q)
	return pageArg(args)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, productID int64, req *models.ProductRequest) (*models.Product, error) {
	args := m.Called(ctx, productID, req)
	return productArg(args)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, productID int64) (*models.Product, error) {
	args := m.Called(ctx, productID)
	return productArg(args)
}

func productArg(args mock.Arguments) (*models.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func pageArg(args mock.Arguments) (*models.ProductResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductResponse), args.Error(1)
}
