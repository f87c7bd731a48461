package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Address represents a customer's shipping address
type Address struct {
	ID           int64     `json:"address_id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Street       string    `json:"street" db:"street"`
	BuildingName string    `json:"building_name" db:"building_name"`
	City         string    `json:"city" db:"city"`
	State        string    `json:"state" db:"state"`
	Country      string    `json:"country" db:"country"`
	PostalCode   string    `json:"postal_code" db:"postal_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AddressRequest carries the editable fields of an address
type AddressRequest struct {
	Street       string `json:"street"`
	BuildingName string `json:"building_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

var postalCodeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{3,9}$`)

// Validate validates address data
func (req *AddressRequest) Validate() error {
	fields := []struct {
		value string
		name  string
		min   int
	}{
		{req.Street, "street", 5},
		{req.BuildingName, "building name", 5},
		{req.City, "city", 2},
		{req.State, "state", 2},
		{req.Country, "country", 2},
	}

	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return errors.New(f.name + " is required")
		}
		if len(v) < f.min {
			return errors.New(f.name + " is too short")
		}
		if len(v) > 255 {
			return errors.New(f.name + " must be less than 255 characters")
		}
	}

	if !postalCodeRegex.MatchString(strings.TrimSpace(req.PostalCode)) {
		return errors.New("postal code format is invalid")
	}

	return nil
}

// Apply copies the request fields onto the address
func (a *Address) Apply(req *AddressRequest) {
	a.Street = strings.TrimSpace(req.Street)
	a.BuildingName = strings.TrimSpace(req.BuildingName)
	a.City = strings.TrimSpace(req.City)
	a.State = strings.TrimSpace(req.State)
	a.Country = strings.TrimSpace(req.Country)
	a.PostalCode = strings.TrimSpace(req.PostalCode)
}
