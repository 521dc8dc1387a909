package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cafepos/backend/internal/cache"
	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/logger"
	"cafepos/backend/internal/pricing"
)

// ErrUnavailable is returned when the catalog cannot be fetched and no
// earlier copy is held.
var ErrUnavailable = errors.New("catalog unavailable")

const DefaultTTL = 5 * time.Minute

// Source fetches raw catalog records from the collaborator services.
type Source interface {
	FetchDiscounts(ctx context.Context) ([]domain.RawDiscount, error)
	FetchPromotions(ctx context.Context) ([]domain.RawPromotion, error)
}

// Loader serves the parsed catalog. Lookups go to the cache first, then the
// source; the last successful fetch is kept in memory and served when the
// source fails.
type Loader struct {
	source Source
	cache  cache.CatalogCache
	ttl    time.Duration
	log    zerolog.Logger

	mu         sync.RWMutex
	discounts  []domain.Discount
	promotions []domain.Promotion
	haveDisc   bool
	havePromo  bool
}

func NewLoader(source Source, c cache.CatalogCache, ttl time.Duration) *Loader {
	if c == nil {
		c = cache.NoopCatalogCache{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Loader{
		source: source,
		cache:  c,
		ttl:    ttl,
		log:    logger.Component("catalog"),
	}
}

func (l *Loader) Discounts(ctx context.Context) ([]domain.Discount, error) {
	if cached, ok, err := l.cache.GetDiscounts(ctx); err != nil {
		l.log.Warn().Err(err).Msg("discount cache read failed")
	} else if ok {
		return cached, nil
	}
	return l.fetchDiscounts(ctx)
}

func (l *Loader) Promotions(ctx context.Context) ([]domain.Promotion, error) {
	if cached, ok, err := l.cache.GetPromotions(ctx); err != nil {
		l.log.Warn().Err(err).Msg("promotion cache read failed")
	} else if ok {
		return cached, nil
	}
	return l.fetchPromotions(ctx)
}

// Discount finds one active discount by id.
func (l *Loader) Discount(ctx context.Context, id string) (domain.Discount, error) {
	discounts, err := l.Discounts(ctx)
	if err != nil {
		return domain.Discount{}, err
	}
	for _, d := range discounts {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Discount{}, fmt.Errorf("%w: %s", pricing.ErrDiscountNotFound, id)
}

// Refresh drops the cached catalog and fetches both lists again.
func (l *Loader) Refresh(ctx context.Context) (domain.CatalogSummary, error) {
	if err := l.cache.Invalidate(ctx); err != nil {
		l.log.Warn().Err(err).Msg("catalog cache invalidate failed")
	}
	discounts, err := l.fetchDiscounts(ctx)
	if err != nil {
		return domain.CatalogSummary{}, err
	}
	promotions, err := l.fetchPromotions(ctx)
	if err != nil {
		return domain.CatalogSummary{}, err
	}
	return domain.CatalogSummary{Discounts: len(discounts), Promotions: len(promotions)}, nil
}

func (l *Loader) fetchDiscounts(ctx context.Context) ([]domain.Discount, error) {
	raw, err := l.source.FetchDiscounts(ctx)
	if err != nil {
		l.mu.RLock()
		last, ok := l.discounts, l.haveDisc
		l.mu.RUnlock()
		if ok {
			l.log.Warn().Err(err).Msg("discount fetch failed, serving last known list")
			return last, nil
		}
		return nil, fmt.Errorf("%w: discounts: %w", ErrUnavailable, err)
	}

	discounts := make([]domain.Discount, 0, len(raw))
	for _, record := range raw {
		if !IsActive(record.Status) {
			continue
		}
		d, err := ParseDiscount(record)
		if err != nil {
			l.log.Warn().Err(err).Str("discount_id", record.ID.String()).Msg("skipping discount")
			continue
		}
		discounts = append(discounts, d)
	}

	l.mu.Lock()
	l.discounts, l.haveDisc = discounts, true
	l.mu.Unlock()
	if err := l.cache.SetDiscounts(ctx, discounts, l.ttl); err != nil {
		l.log.Warn().Err(err).Msg("discount cache write failed")
	}
	return discounts, nil
}

func (l *Loader) fetchPromotions(ctx context.Context) ([]domain.Promotion, error) {
	raw, err := l.source.FetchPromotions(ctx)
	if err != nil {
		l.mu.RLock()
		last, ok := l.promotions, l.havePromo
		l.mu.RUnlock()
		if ok {
			l.log.Warn().Err(err).Msg("promotion fetch failed, serving last known list")
			return last, nil
		}
		return nil, fmt.Errorf("%w: promotions: %w", ErrUnavailable, err)
	}

	promotions := make([]domain.Promotion, 0, len(raw))
	for _, record := range raw {
		if !IsActive(record.Status) {
			continue
		}
		p, err := ParsePromotion(record)
		if err != nil {
			l.log.Warn().Err(err).Str("promotion_id", record.ID.String()).Msg("skipping promotion")
			continue
		}
		promotions = append(promotions, p)
	}

	l.mu.Lock()
	l.promotions, l.havePromo = promotions, true
	l.mu.Unlock()
	if err := l.cache.SetPromotions(ctx, promotions, l.ttl); err != nil {
		l.log.Warn().Err(err).Msg("promotion cache write failed")
	}
	return promotions, nil
}
