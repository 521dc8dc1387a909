package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/backend/internal/domain"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestParseDiscountPercentage(t *testing.T) {
	d, err := ParseDiscount(domain.RawDiscount{
		ID: "7", Name: " Senior ", Discount: "20%", MinSpend: "1,000",
		ApplicationType: "all_products", Status: "active",
	})
	require.NoError(t, err)

	assert.Equal(t, "7", d.ID)
	assert.Equal(t, "Senior", d.Name)
	assert.Equal(t, domain.ValuePercentage, d.Type)
	assertDecimal(t, "20", d.Value)
	assertDecimal(t, "1000", d.MinSpend)
	assert.Equal(t, domain.ScopeAll, d.Scope)
	assert.Empty(t, d.ApplicableNames)
}

func TestParseDiscountFixedWithCurrency(t *testing.T) {
	d, err := ParseDiscount(domain.RawDiscount{
		ID: "8", Name: "Pastry promo", Discount: "₱1,250.50",
		ApplicationType: "specific_products", ApplicableProducts: domain.FlexList{"Cookie", "Muffin"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ValueFixed, d.Type)
	assertDecimal(t, "1250.50", d.Value)
	assert.Equal(t, domain.ScopeSpecificProduct, d.Scope)
	assert.Equal(t, []string{"Cookie", "Muffin"}, d.ApplicableNames)
	assert.True(t, d.MinSpend.IsZero())
}

func TestParseDiscountCategoryFromJSON(t *testing.T) {
	var raw domain.RawDiscount
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 12, "name": "Coffee day", "type": "percentage", "discount": 15,
		"application_type": "category",
		"applicable_categories": [{"name": "Coffee"}, {"name": "Tea"}]
	}`), &raw))

	d, err := ParseDiscount(raw)
	require.NoError(t, err)
	assert.Equal(t, "12", d.ID)
	assert.Equal(t, domain.ValuePercentage, d.Type)
	assertDecimal(t, "15", d.Value)
	assert.Equal(t, domain.ScopeCategory, d.Scope)
	assert.Equal(t, []string{"Coffee", "Tea"}, d.ApplicableNames)
}

func TestParseDiscountRejectsBadRecords(t *testing.T) {
	for name, raw := range map[string]domain.RawDiscount{
		"no name":      {ID: "1", Discount: "10%"},
		"no value":     {ID: "2", Name: "Mystery", Discount: "free"},
		"zero":         {ID: "3", Name: "Zero", Discount: "0"},
		"over 100 pct": {ID: "4", Name: "Greedy", Discount: "150%"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDiscount(raw)
			require.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestParsePromotionBOGO(t *testing.T) {
	p, err := ParsePromotion(domain.RawPromotion{
		ID: "p-1", Name: "Latte treat", Type: "bogo", Value: "Buy 2 Get 1", Products: "Latte",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PromotionBOGO, p.Type)
	assert.Equal(t, 2, p.BuyQuantity)
	assert.Equal(t, 1, p.GetQuantity)
	assert.Equal(t, domain.ValuePercentage, p.ValueType)
	assertDecimal(t, "100", p.Value)
	assert.Equal(t, domain.ScopeSpecificProduct, p.Scope)
	assert.Equal(t, []string{"Latte"}, p.ScopeNames)
	assert.Equal(t, 3, p.Priority)
}

func TestParsePromotionBOGOVariants(t *testing.T) {
	p, err := ParsePromotion(domain.RawPromotion{ID: "p-2", Name: "Pastry 1+1", Type: "buy_x_get_y", Value: "50%", Products: "Pastry", ApplicationType: "category"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.BuyQuantity)
	assert.Equal(t, 1, p.GetQuantity)
	assert.Equal(t, domain.ValuePercentage, p.ValueType)
	assertDecimal(t, "50", p.Value)
	assert.Equal(t, domain.ScopeCategory, p.Scope)
	assert.Equal(t, 2, p.Priority)

	p, err = ParsePromotion(domain.RawPromotion{ID: "p-3", Name: "Mug deal", Value: "3+1 ₱20 off", Products: "all products"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromotionBOGO, p.Type)
	assert.Equal(t, 3, p.BuyQuantity)
	assert.Equal(t, 1, p.GetQuantity)
	assert.Equal(t, domain.ValueFixed, p.ValueType)
	assertDecimal(t, "20", p.Value)
	assert.Equal(t, domain.ScopeAll, p.Scope)
	assert.Equal(t, 1, p.Priority)

	p, err = ParsePromotion(domain.RawPromotion{ID: "p-4", Name: "Any freebie", Type: "BOGO"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.BuyQuantity)
	assert.Equal(t, 1, p.GetQuantity)
}

func TestParsePromotionPercentageAndFixed(t *testing.T) {
	p, err := ParsePromotion(domain.RawPromotion{ID: "p-5", Name: "Coffee 10", Type: "percentage", Value: "10", Products: "Latte, Americano"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromotionPercentage, p.Type)
	assert.Equal(t, domain.ValuePercentage, p.ValueType)
	assert.Equal(t, []string{"Latte", "Americano"}, p.ScopeNames)

	p, err = ParsePromotion(domain.RawPromotion{ID: "p-6", Name: "Less 25", Value: "PHP 25"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromotionFixed, p.Type)
	assert.Equal(t, domain.ValueFixed, p.ValueType)
	assertDecimal(t, "25", p.Value)

	_, err = ParsePromotion(domain.RawPromotion{ID: "p-7", Name: "Broken", Type: "percentage", Value: "120%"})
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive("Active"))
	assert.True(t, IsActive(" active "))
	assert.False(t, IsActive(""))
	assert.False(t, IsActive("  "))
	assert.False(t, IsActive("inactive"))
	assert.False(t, IsActive("expired"))
}
