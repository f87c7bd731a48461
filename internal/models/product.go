package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product represents a catalog product
type Product struct {
	ID           int64           `json:"product_id" db:"id"`
	CategoryID   int64           `json:"category_id" db:"category_id"`
	Name         string          `json:"product_name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Image        string          `json:"image" db:"image"`
	Quantity     int             `json:"quantity" db:"quantity"` // units in stock
	Price        decimal.Decimal `json:"price" db:"price"`
	Discount     decimal.Decimal `json:"discount" db:"discount"` // percentage, 0-100
	SpecialPrice decimal.Decimal `json:"special_price" db:"special_price"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductRequest carries the editable fields of a product
type ProductRequest struct {
	Name        string          `json:"product_name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

// ProductResponse is a page of products
type ProductResponse struct {
	Content       []*Product `json:"content"`
	PageNumber    int        `json:"page_number"`
	PageSize      int        `json:"page_size"`
	TotalElements int        `json:"total_elements"`
	TotalPages    int        `json:"total_pages"`
	LastPage      bool       `json:"last_page"`
}

// ComputeSpecialPrice returns price - discount*0.01*price, rounded to cents
func ComputeSpecialPrice(price, discount decimal.Decimal) decimal.Decimal {
	return price.Sub(price.Mul(discount).Div(hundred)).Round(2)
}

// ApplyPricing recomputes the special price from price and discount
func (p *Product) ApplyPricing() {
	p.SpecialPrice = ComputeSpecialPrice(p.Price, p.Discount)
}

// InStock returns true if at least one unit is available
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// Validate validates product data
func (req *ProductRequest) Validate() error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.New("product name is required")
	}
	if len(name) < 3 {
		return errors.New("product name must contain at least 3 characters")
	}
	if len(name) > 255 {
		return errors.New("product name must be less than 255 characters")
	}
	if req.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	if req.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	if req.Discount.IsNegative() || req.Discount.GreaterThan(hundred) {
		return errors.New("discount must be between 0 and 100")
	}
	return nil
}
