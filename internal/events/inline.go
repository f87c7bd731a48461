package events

import (
	"context"
	"fmt"
)

// InlinePublisher reconciles carts synchronously in the publishing request.
// It is used when no broker is configured.
type InlinePublisher struct {
	handler PriceChangeHandler
}

func NewInlinePublisher(handler PriceChangeHandler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) PublishPriceChanged(ctx context.Context, event PriceChanged) error {
	if _, err := p.handler.ReconcileProduct(ctx, event.ProductID); err != nil {
		return fmt.Errorf("failed to reconcile carts for product %d: %w", event.ProductID, err)
	}
	return nil
}

func (p *InlinePublisher) Close() error { return nil }
