package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
)

// CategoryRepository interface for category data operations
type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id int64) error
}

// CategoryService handles category business logic
type CategoryService struct {
	categories CategoryRepository
}

// NewCategoryService creates a new category service
func NewCategoryService(categories CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CreateCategory creates a category with a unique name
func (s *CategoryService) CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories returns all categories. An empty catalog is an error.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, models.NewInvalidState("No categories found")
	}
	return categories, nil
}

// GetCategory retrieves a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, categoryID int64) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, models.ResourceNotFound("Category", "categoryId", categoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// UpdateCategory renames a category
func (s *CategoryService) UpdateCategory(ctx context.Context, categoryID int64, req *models.CategoryRequest) (*models.Category, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Slug = req.Slug
	category.Description = strings.TrimSpace(req.Description)

	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Category", "categoryId", categoryID)
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes an empty category and returns it
func (s *CategoryService) DeleteCategory(ctx context.Context, categoryID int64) (*models.Category, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if err := s.categories.Delete(ctx, categoryID); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Category", "categoryId", categoryID)
		}
		return nil, err
	}
	return category, nil
}
