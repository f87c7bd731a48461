package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
)

// CategoryRepository handles category data operations
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (name, slug, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, c.Name, c.Slug, c.Description, time.Now()).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflict("Category with the name %s already exists", c.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return c, nil
}

// List returns all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Update writes the name, slug and description of a category
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE categories SET name = $2, slug = $3, description = $4 WHERE id = $1`,
		c.ID, c.Name, c.Slug, c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflict("Category with the name %s already exists", c.Name)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRecordNotFound
	}

	return nil
}

// Delete removes a category that no product belongs to
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewConflict("Category %d still has products", id)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRecordNotFound
	}

	return nil
}
