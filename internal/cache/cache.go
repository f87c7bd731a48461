// Package cache stores rendered cart snapshots keyed by the owning user.
package cache

import (
	"context"
	"errors"

	"storefront/internal/models"
)

// CartCache holds the last snapshot served for a user's cart
type CartCache interface {
	Get(ctx context.Context, userID int64) (*models.CartSnapshot, error)
	Set(ctx context.Context, userID int64, snapshot *models.CartSnapshot) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// NoopCache always misses. It is used when no Redis URL is configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, int64) (*models.CartSnapshot, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, int64, *models.CartSnapshot) error { return nil }

func (NoopCache) Delete(context.Context, int64) error { return nil }
