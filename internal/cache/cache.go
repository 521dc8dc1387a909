// Package cache holds the parsed discount and promotion catalog between
// collaborator fetches.
package cache

import (
	"context"
	"time"

	"cafepos/backend/internal/domain"
)

type CatalogCache interface {
	GetDiscounts(ctx context.Context) ([]domain.Discount, bool, error)
	SetDiscounts(ctx context.Context, discounts []domain.Discount, ttl time.Duration) error
	GetPromotions(ctx context.Context) ([]domain.Promotion, bool, error)
	SetPromotions(ctx context.Context, promotions []domain.Promotion, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetDiscounts(_ context.Context) ([]domain.Discount, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetDiscounts(_ context.Context, _ []domain.Discount, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) GetPromotions(_ context.Context) ([]domain.Promotion, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetPromotions(_ context.Context, _ []domain.Promotion, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
