// Package events propagates catalog price changes to carts.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventTypePriceChanged = "product.price_changed"

// PriceChanged is emitted when a product's price or discount is edited
type PriceChanged struct {
	EventID      string          `json:"event_id"`
	ProductID    int64           `json:"product_id"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	OldDiscount  decimal.Decimal `json:"old_discount"`
	NewDiscount  decimal.Decimal `json:"new_discount"`
	SpecialPrice decimal.Decimal `json:"special_price"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// NewPriceChanged builds an event with a fresh id
func NewPriceChanged(productID int64, oldPrice, newPrice, oldDiscount, newDiscount, specialPrice decimal.Decimal) PriceChanged {
	return PriceChanged{
		EventID:      uuid.NewString(),
		ProductID:    productID,
		OldPrice:     oldPrice,
		NewPrice:     newPrice,
		OldDiscount:  oldDiscount,
		NewDiscount:  newDiscount,
		SpecialPrice: specialPrice,
		OccurredAt:   time.Now().UTC(),
	}
}

// Publisher delivers price change events to the cart reconciler
type Publisher interface {
	PublishPriceChanged(ctx context.Context, event PriceChanged) error
	Close() error
}

// PriceChangeHandler reconciles every cart holding a product
type PriceChangeHandler interface {
	ReconcileProduct(ctx context.Context, productID int64) (int, error)
}

func encodePriceChanged(event PriceChanged) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal price change failed: %w", err)
	}
	return data, nil
}

func decodePriceChanged(data []byte) (PriceChanged, error) {
	var event PriceChanged
	if err := json.Unmarshal(data, &event); err != nil {
		return PriceChanged{}, fmt.Errorf("unmarshal price change failed: %w", err)
	}
	if event.ProductID <= 0 {
		return PriceChanged{}, fmt.Errorf("price change without product id")
	}
	return event, nil
}
