package services

import (
	"context"

	"storefront/internal/models"
)

// CartServiceInterface defines the interface for cart services
type CartServiceInterface interface {
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartSnapshot, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, delta int) (*models.CartSnapshot, error)
	RemoveFromCart(ctx context.Context, cartID, productID int64) (string, error)
	ReconcileCartItem(ctx context.Context, cartID, productID int64) error
	ReconcileProduct(ctx context.Context, productID int64) (int, error)
	ListAllCarts(ctx context.Context) ([]*models.CartSnapshot, error)
	GetCart(ctx context.Context, userID int64) (*models.CartSnapshot, error)
}

// ProductServiceInterface defines the interface for catalog services
type ProductServiceInterface interface {
	CreateProduct(ctx context.Context, categoryID int64, req *models.ProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, q PageQuery) (*models.ProductResponse, error)
	ListByCategory(ctx context.Context, categoryID int64, q PageQuery) (*models.ProductResponse, error)
	SearchByKeyword(ctx context.Context, keyword string, q PageQuery) (*models.ProductResponse, error)
	UpdateProduct(ctx context.Context, productID int64, req *models.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) (*models.Product, error)
}

// CategoryServiceInterface defines the interface for category services
type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, categoryID int64) (*models.Category, error)
	UpdateCategory(ctx context.Context, categoryID int64, req *models.CategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, categoryID int64) (*models.Category, error)
}

// AddressServiceInterface defines the interface for address services
type AddressServiceInterface interface {
	CreateAddress(ctx context.Context, userID int64, req *models.AddressRequest) (*models.Address, error)
	ListAddresses(ctx context.Context) ([]*models.Address, error)
	GetAddress(ctx context.Context, addressID int64) (*models.Address, error)
	ListUserAddresses(ctx context.Context, userID int64) ([]*models.Address, error)
	UpdateAddress(ctx context.Context, addressID int64, req *models.AddressRequest) (*models.Address, error)
	DeleteAddress(ctx context.Context, addressID int64) (*models.Address, error)
}

var (
	_ CartServiceInterface     = (*CartService)(nil)
	_ ProductServiceInterface  = (*ProductService)(nil)
	_ CategoryServiceInterface = (*CategoryService)(nil)
	_ AddressServiceInterface  = (*AddressService)(nil)
)
