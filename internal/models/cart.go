package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart represents a user's shopping cart. A user owns at most one cart.
type Cart struct {
	ID         int64           `json:"cart_id" db:"id"`
	UserID     int64           `json:"user_id" db:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Items      []*CartItem     `json:"items"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// CartItem is one product line of a cart. Price and Discount are snapshots of
// the product's special price and discount taken at the last write.
type CartItem struct {
	ID        int64           `json:"cart_item_id" db:"id"`
	CartID    int64           `json:"cart_id" db:"cart_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Discount  decimal.Decimal `json:"discount" db:"discount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// CartSnapshot is the read-only view of a cart returned to callers
type CartSnapshot struct {
	CartID     int64           `json:"cart_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Products   []ProductView   `json:"products"`
}

// ProductView is a catalog product overlaid with the cart line's quantity
type ProductView struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"product_name"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Quantity     int             `json:"quantity"` // quantity in the cart, not stock
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"special_price"`
}

// Item returns the line for productID, or nil
func (c *Cart) Item(productID int64) *CartItem {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

// PutItem inserts the item or replaces the existing line for the same product.
// Insertion order is preserved for existing lines.
func (c *Cart) PutItem(item *CartItem) {
	for i, existing := range c.Items {
		if existing.ProductID == item.ProductID {
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// RemoveItem drops the line for productID and reports whether one existed
func (c *Cart) RemoveItem(productID int64) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ItemsTotal sums price * quantity over the current lines
func (c *Cart) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Subtotal returns price * quantity for the line
func (i *CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewProductView overlays the cart quantity onto the catalog product
func NewProductView(p *Product, quantity int) ProductView {
	return ProductView{
		ProductID:    p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Image:        p.Image,
		Quantity:     quantity,
		Price:        p.Price,
		Discount:     p.Discount,
		SpecialPrice: p.SpecialPrice,
	}
}
