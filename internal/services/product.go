package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// ProductRepository interface for product data operations
type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByName(ctx context.Context, name string) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filters repositories.ProductSearchFilters) ([]*models.Product, int, error)
}

// CategoryLookup resolves the category a product belongs to
type CategoryLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Category, error)
}

const (
	DefaultPageNumber = 0
	DefaultPageSize   = 50
	MaxPageSize       = 100
	defaultImage      = "default.png"
)

// PageQuery selects a page of a listing
type PageQuery struct {
	PageNumber int
	PageSize   int
	SortBy     string
	SortOrder  string // "asc" or "desc"
}

// productSortColumns maps accepted sort keys to columns
var productSortColumns = map[string]string{
	"":             "id",
	"id":           "id",
	"productId":    "id",
	"name":         "name",
	"productName":  "name",
	"price":        "price",
	"specialPrice": "special_price",
	"createdAt":    "created_at",
}

func (q PageQuery) filters() (repositories.ProductSearchFilters, error) {
	if q.PageNumber < 0 {
		return repositories.ProductSearchFilters{}, models.NewInvalidInput("Page number cannot be negative")
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	column, ok := productSortColumns[q.SortBy]
	if !ok {
		return repositories.ProductSearchFilters{}, models.NewInvalidInput("Cannot sort products by %s", q.SortBy)
	}

	return repositories.ProductSearchFilters{
		Limit:    q.PageSize,
		Offset:   q.PageNumber * q.PageSize,
		SortBy:   column,
		SortDesc: strings.EqualFold(q.SortOrder, "desc"),
	}, nil
}

// ProductService manages the catalog and announces price changes to carts
type ProductService struct {
	products   ProductRepository
	categories CategoryLookup
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(products ProductRepository, categories CategoryLookup, publisher events.Publisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products:   products,
		categories: categories,
		publisher:  publisher,
		logger:     logger.Named("product"),
	}
}

// CreateProduct adds a product to a category
func (s *ProductService) CreateProduct(ctx context.Context, categoryID int64, req *models.ProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if _, err := s.products.GetByName(ctx, name); err == nil {
		return nil, models.NewConflict("Product %s already exists", name)
	} else if !errors.Is(err, models.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check product name: %w", err)
	}

	product := &models.Product{
		CategoryID:  categoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Image:       defaultImage,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Discount:    req.Discount,
	}
	product.ApplyPricing()

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, models.ResourceNotFound("Product", "productId", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts returns a page of the whole catalog
func (s *ProductService) ListProducts(ctx context.Context, q PageQuery) (*models.ProductResponse, error) {
	return s.page(ctx, q, func(f *repositories.ProductSearchFilters) {})
}

// ListByCategory returns a page of a category's products
func (s *ProductService) ListByCategory(ctx context.Context, categoryID int64, q PageQuery) (*models.ProductResponse, error) {
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.page(ctx, q, func(f *repositories.ProductSearchFilters) { f.CategoryID = categoryID })
}

// SearchByKeyword returns a page of products whose name contains keyword,
// ignoring case
func (s *ProductService) SearchByKeyword(ctx context.Context, keyword string, q PageQuery) (*models.ProductResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, models.NewInvalidInput("Keyword is required")
	}
	return s.page(ctx, q, func(f *repositories.ProductSearchFilters) { f.Keyword = keyword })
}

// UpdateProduct replaces a product's editable fields. When the price or
// discount changes the carts holding the product are reconciled.
func (s *ProductService) UpdateProduct(ctx context.Context, productID int64, req *models.ProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	oldPrice, oldDiscount := product.Price, product.Discount

	product.Name = strings.TrimSpace(req.Name)
	product.Description = strings.TrimSpace(req.Description)
	product.Quantity = req.Quantity
	product.Price = req.Price
	product.Discount = req.Discount
	product.ApplyPricing()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Product", "productId", productID)
		}
		return nil, err
	}

	if s.publisher != nil && (!oldPrice.Equal(product.Price) || !oldDiscount.Equal(product.Discount)) {
		event := events.NewPriceChanged(product.ID, oldPrice, product.Price, oldDiscount, product.Discount, product.SpecialPrice)
		// The product is already saved. Carts that miss this event keep
		// their snapshot until the next quantity change refreshes it.
		if err := s.publisher.PublishPriceChanged(ctx, event); err != nil {
			s.logger.Error("failed to publish price change",
				zap.Int64("product_id", product.ID),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}

	return product, nil
}

// DeleteProduct removes a product no cart holds and returns it
func (s *ProductService) DeleteProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Product", "productId", productID)
		}
		return nil, err
	}

	s.logger.Info("product deleted", zap.Int64("product_id", productID))
	return product, nil
}

func (s *ProductService) requireCategory(ctx context.Context, categoryID int64) error {
	_, err := s.categories.GetByID(ctx, categoryID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return models.ResourceNotFound("Category", "categoryId", categoryID)
	}
	if err != nil {
		return fmt.Errorf("failed to get category: %w", err)
	}
	return nil
}

func (s *ProductService) page(ctx context.Context, q PageQuery, scope func(*repositories.ProductSearchFilters)) (*models.ProductResponse, error) {
	filters, err := q.filters()
	if err != nil {
		return nil, err
	}
	scope(&filters)

	products, total, err := s.products.Search(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	if products == nil {
		products = []*models.Product{}
	}

	totalPages := (total + filters.Limit - 1) / filters.Limit
	pageNumber := filters.Offset / filters.Limit

	return &models.ProductResponse{
		Content:       products,
		PageNumber:    pageNumber,
		PageSize:      filters.Limit,
		TotalElements: total,
		TotalPages:    totalPages,
		LastPage:      pageNumber >= totalPages-1,
	}, nil
}
