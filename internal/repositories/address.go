package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
)

// AddressRepository handles address data operations
type AddressRepository struct {
	db *sql.DB
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

const addressColumns = `id, user_id, street, building_name, city, state, country, postal_code, created_at, updated_at`

func scanAddress(row interface{ Scan(...interface{}) error }) (*models.Address, error) {
	a := &models.Address{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Street,
		&a.BuildingName,
		&a.City,
		&a.State,
		&a.Country,
		&a.PostalCode,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create creates a new address
func (r *AddressRepository) Create(ctx context.Context, a *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, street, building_name, city, state, country, postal_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		a.UserID, a.Street, a.BuildingName, a.City, a.State, a.Country, a.PostalCode, time.Now(),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}

	return nil
}

// GetByID retrieves an address by ID
func (r *AddressRepository) GetByID(ctx context.Context, id int64) (*models.Address, error) {
	a, err := scanAddress(conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return a, nil
}

// List returns all addresses
func (r *AddressRepository) List(ctx context.Context) ([]*models.Address, error) {
	return r.list(ctx, `SELECT `+addressColumns+` FROM addresses ORDER BY id`)
}

// ListByUser returns the addresses of a user
func (r *AddressRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Address, error) {
	return r.list(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *AddressRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Address, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*models.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	return addresses, rows.Err()
}

// Update writes the editable fields of an address
func (r *AddressRepository) Update(ctx context.Context, a *models.Address) error {
	query := `
		UPDATE addresses
		SET street = $2, building_name = $3, city = $4, state = $5, country = $6, postal_code = $7, updated_at = $8
		WHERE id = $1
		RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		a.ID, a.Street, a.BuildingName, a.City, a.State, a.Country, a.PostalCode, time.Now(),
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update address: %w", err)
	}

	return nil
}

// Delete removes an address
func (r *AddressRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
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
