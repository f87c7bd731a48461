package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// AddressRepository interface for address data operations
type AddressRepository interface {
	Create(ctx context.Context, a *models.Address) error
	GetByID(ctx context.Context, id int64) (*models.Address, error)
	List(ctx context.Context) ([]*models.Address, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Address, error)
	Update(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, id int64) error
}

// AddressService manages customer addresses
type AddressService struct {
	addresses AddressRepository
}

// NewAddressService creates a new address service
func NewAddressService(addresses AddressRepository) *AddressService {
	return &AddressService{addresses: addresses}
}

// CreateAddress stores a new address for userID
func (s *AddressService) CreateAddress(ctx context.Context, userID int64, req *models.AddressRequest) (*models.Address, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	address := &models.Address{UserID: userID}
	address.Apply(req)

	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

// ListAddresses returns every address
func (s *AddressService) ListAddresses(ctx context.Context) ([]*models.Address, error) {
	addresses, err := s.addresses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if addresses == nil {
		addresses = []*models.Address{}
	}
	return addresses, nil
}

// GetAddress retrieves an address by ID
func (s *AddressService) GetAddress(ctx context.Context, addressID int64) (*models.Address, error) {
	address, err := s.addresses.GetByID(ctx, addressID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return nil, models.ResourceNotFound("Address", "addressId", addressID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return address, nil
}

// ListUserAddresses returns the addresses of userID
func (s *AddressService) ListUserAddresses(ctx context.Context, userID int64) ([]*models.Address, error) {
	addresses, err := s.addresses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if addresses == nil {
		addresses = []*models.Address{}
	}
	return addresses, nil
}

// UpdateAddress replaces the editable fields of an address
func (s *AddressService) UpdateAddress(ctx context.Context, addressID int64, req *models.AddressRequest) (*models.Address, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewInvalidInput("%s", err.Error())
	}

	address, err := s.GetAddress(ctx, addressID)
	if err != nil {
		return nil, err
	}
	address.Apply(req)

	if err := s.addresses.Update(ctx, address); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Address", "addressId", addressID)
		}
		return nil, err
	}
	return address, nil
}

// DeleteAddress removes an address and returns it
func (s *AddressService) DeleteAddress(ctx context.Context, addressID int64) (*models.Address, error) {
	address, err := s.GetAddress(ctx, addressID)
	if err != nil {
		return nil, err
	}

	if err := s.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ResourceNotFound("Address", "addressId", addressID)
		}
		return nil, err
	}
	return address, nil
}
