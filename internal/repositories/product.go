package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/lib/pq"
)

// ProductRepository handles product data operations
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ProductSearchFilters represents filters for product search
type ProductSearchFilters struct {
	CategoryID int64  // Filter by category
	Keyword    string // Case-insensitive substring of the name
	Limit      int
	Offset     int
	SortBy     string // "id", "name", "price", "special_price", "created_at"
	SortDesc   bool
}

const productColumns = `id, category_id, name, description, image, quantity, price, discount, special_price, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Image,
		&p.Quantity,
		&p.Price,
		&p.Discount,
		&p.SpecialPrice,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new product and fills in its generated fields
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (category_id, name, description, image, quantity, price, discount, special_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		p.CategoryID,
		p.Name,
		p.Description,
		p.Image,
		p.Quantity,
		p.Price,
		p.Discount,
		p.SpecialPrice,
		now,
		now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflict("Product %s already exists", p.Name)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// GetByName retrieves a product by its exact name
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = $1`

	p, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get product by name: %w", err)
	}

	return p, nil
}

// GetByIDs retrieves the products with the given ids, keyed by id. Missing
// ids are simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	products := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}

	return products, rows.Err()
}

// Update writes the editable fields and pricing of a product
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, image = $4, quantity = $5, price = $6, discount = $7, special_price = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Image,
		p.Quantity,
		p.Price,
		p.Discount,
		p.SpecialPrice,
		time.Now(),
	).Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrRecordNotFound
		}
		if isUniqueViolation(err) {
			return models.NewConflict("Product %s already exists", p.Name)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewConflict("Product %d is still referenced by a cart", id)
		}
		return fmt.Errorf("failed to delete product: %w", err)
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

// Search returns a page of products matching filters and the total match count
func (r *ProductRepository) Search(ctx context.Context, filters ProductSearchFilters) ([]*models.Product, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filters.CategoryID > 0 {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, filters.CategoryID)
		argIndex++
	}

	if filters.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filters.Keyword+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "ORDER BY id ASC"
	if filters.SortBy != "" {
		direction := "ASC"
		if filters.SortDesc {
			direction = "DESC"
		}

		switch filters.SortBy {
		case "id", "name", "price", "special_price", "created_at":
			orderBy = fmt.Sprintf("ORDER BY %s %s", filters.SortBy, direction)
		}
	}

	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	if err := conn(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get product count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s %s LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, orderBy, argIndex, argIndex+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
