package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/pricing"
)

type fakeSource struct {
	discounts  []domain.RawDiscount
	promotions []domain.RawPromotion
	err        error
	calls      int
}

func (f *fakeSource) FetchDiscounts(_ context.Context) ([]domain.RawDiscount, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.discounts, nil
}

func (f *fakeSource) FetchPromotions(_ context.Context) ([]domain.RawPromotion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.promotions, nil
}

type memoryCache struct {
	mu          sync.Mutex
	discounts   []domain.Discount
	promotions  []domain.Promotion
	invalidated int
}

func (m *memoryCache) GetDiscounts(_ context.Context) ([]domain.Discount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discounts, m.discounts != nil, nil
}

func (m *memoryCache) SetDiscounts(_ context.Context, d []domain.Discount, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts = d
	return nil
}

func (m *memoryCache) GetPromotions(_ context.Context) ([]domain.Promotion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promotions, m.promotions != nil, nil
}

func (m *memoryCache) SetPromotions(_ context.Context, p []domain.Promotion, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotions = p
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts, m.promotions = nil, nil
	m.invalidated++
	return nil
}

func sampleSource() *fakeSource {
	return &fakeSource{
		discounts: []domain.RawDiscount{
			{ID: "1", Name: "Senior", Discount: "20%", Status: "active"},
			{ID: "2", Name: "Old promo", Discount: "10%", Status: "inactive"},
			{ID: "3", Name: "Broken", Discount: "n/a", Status: "active"},
			{ID: "4", Name: "Unlabelled", Discount: "15%"},
		},
		promotions: []domain.RawPromotion{
			{ID: "p-1", Name: "Latte 2+1", Type: "bogo", Value: "Buy 2 Get 1", Products: "Latte", Status: "active"},
			{ID: "p-2", Name: "Expired", Type: "percentage", Value: "5", Status: "expired"},
			{ID: "p-3", Name: "Unlabelled", Type: "percentage", Value: "5", Products: "all products"},
		},
	}
}

func TestLoaderFiltersAndParses(t *testing.T) {
	loader := NewLoader(sampleSource(), nil, time.Minute)
	ctx := context.Background()

	discounts, err := loader.Discounts(ctx)
	require.NoError(t, err)
	require.Len(t, discounts, 1)
	assert.Equal(t, "Senior", discounts[0].Name)

	promotions, err := loader.Promotions(ctx)
	require.NoError(t, err)
	require.Len(t, promotions, 1)
	assert.Equal(t, 2, promotions[0].BuyQuantity)
}

func TestLoaderUsesCache(t *testing.T) {
	source := sampleSource()
	c := &memoryCache{}
	loader := NewLoader(source, c, time.Minute)
	ctx := context.Background()

	_, err := loader.Discounts(ctx)
	require.NoError(t, err)
	_, err = loader.Discounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	summary, err := loader.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CatalogSummary{Discounts: 1, Promotions: 1}, summary)
	assert.Equal(t, 1, c.invalidated)
	assert.Equal(t, 3, source.calls)
}

func TestLoaderServesLastKnownListOnFailure(t *testing.T) {
	source := sampleSource()
	loader := NewLoader(source, nil, time.Minute)
	ctx := context.Background()

	_, err := loader.Promotions(ctx)
	require.NoError(t, err)

	source.err = errors.New("connection refused")
	promotions, err := loader.Promotions(ctx)
	require.NoError(t, err)
	assert.Len(t, promotions, 1)

	_, err = loader.Discounts(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLoaderDiscountLookup(t *testing.T) {
	loader := NewLoader(sampleSource(), nil, time.Minute)
	ctx := context.Background()

	d, err := loader.Discount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Senior", d.Name)

	_, err = loader.Discount(ctx, "2")
	require.ErrorIs(t, err, pricing.ErrDiscountNotFound)
}
