package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CartRepository handles cart and cart item data operations
type CartRepository struct {
	*Transactor
	db *sql.DB
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{Transactor: NewTransactor(db), db: db}
}

const cartItemColumns = `id, cart_id, product_id, quantity, price, discount, created_at, updated_at`

func scanCartItem(row interface{ Scan(...interface{}) error }) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
		&item.Discount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindByUser retrieves the cart owned by userID together with its items
func (r *CartRepository) FindByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return r.findOne(ctx, `SELECT id, user_id, total_price, created_at, updated_at FROM carts WHERE user_id = $1`, userID)
}

// FindByID retrieves a cart by ID together with its items
func (r *CartRepository) FindByID(ctx context.Context, cartID int64) (*models.Cart, error) {
	return r.findOne(ctx, `SELECT id, user_id, total_price, created_at, updated_at FROM carts WHERE id = $1`, cartID)
}

func (r *CartRepository) findOne(ctx context.Context, query string, arg int64) (*models.Cart, error) {
	cart := &models.Cart{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := r.itemsByCart(ctx, []int64{cart.ID})
	if err != nil {
		return nil, err
	}
	cart.Items = items[cart.ID]

	return cart, nil
}

// itemsByCart loads the items of the given carts in insertion order
func (r *CartRepository) itemsByCart(ctx context.Context, cartIDs []int64) (map[int64][]*models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = ANY($1) ORDER BY cart_id, id`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pq.Array(cartIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]*models.CartItem)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items[item.CartID] = append(items[item.CartID], item)
	}

	return items, rows.Err()
}

// Create creates an empty cart for userID. If a concurrent request already
// created one, that cart is returned instead.
func (r *CartRepository) Create(ctx context.Context, userID int64) (*models.Cart, error) {
	query := `
		INSERT INTO carts (user_id, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, user_id, total_price, created_at, updated_at`

	cart := &models.Cart{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, decimal.Zero, time.Now()).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r.FindByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

// Lock takes a row lock on the cart for the rest of the current transaction
func (r *CartRepository) Lock(ctx context.Context, cartID int64) error {
	var id int64
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrRecordNotFound
		}
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	return nil
}

// FindItem retrieves the line for (cartID, productID)
func (r *CartRepository) FindItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	item, err := scanCartItem(conn(ctx, r.db).QueryRowContext(ctx, query, cartID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	return item, nil
}

// SaveItem inserts a new line (ID == 0) or updates an existing one
func (r *CartRepository) SaveItem(ctx context.Context, item *models.CartItem) error {
	now := time.Now()

	if item.ID == 0 {
		query := `
			INSERT INTO cart_items (cart_id, product_id, quantity, price, discount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id, created_at, updated_at`

		err := conn(ctx, r.db).QueryRowContext(ctx, query,
			item.CartID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.Discount,
			now,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return models.NewConflict("product %d already exists in cart %d", item.ProductID, item.CartID)
			}
			return fmt.Errorf("failed to create cart item: %w", err)
		}
		return nil
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE cart_items SET quantity = $2, price = $3, discount = $4, updated_at = $5
		WHERE id = $1`,
		item.ID, item.Quantity, item.Price, item.Discount, now)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRecordNotFound
	}

	item.UpdatedAt = now
	return nil
}

// DeleteItem removes a cart line
func (r *CartRepository) DeleteItem(ctx context.Context, itemID int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
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

// Save persists the cart's total price
func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE carts SET total_price = $2, updated_at = $3 WHERE id = $1`,
		cart.ID, cart.TotalPrice, now)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrRecordNotFound
	}

	cart.UpdatedAt = now
	return nil
}

// ListAll returns every cart with its items, ordered by id
func (r *CartRepository) ListAll(ctx context.Context) ([]*models.Cart, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, total_price, created_at, updated_at FROM carts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	defer rows.Close()

	var carts []*models.Cart
	var ids []int64
	for rows.Next() {
		cart := &models.Cart{}
		if err := rows.Scan(&cart.ID, &cart.UserID, &cart.TotalPrice, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}
		carts = append(carts, cart)
		ids = append(ids, cart.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carts: %w", err)
	}

	if len(carts) == 0 {
		return carts, nil
	}

	items, err := r.itemsByCart(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, cart := range carts {
		cart.Items = items[cart.ID]
	}

	return carts, nil
}

// ListCartIDsByProduct returns the ids of carts holding productID
func (r *CartRepository) ListCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT cart_id FROM cart_items WHERE product_id = $1 ORDER BY cart_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts by product: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cart id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
