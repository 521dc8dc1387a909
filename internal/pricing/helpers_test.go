package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/backend/internal/domain"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func product(id string, name string, category string, price string) domain.CartLine {
	return domain.CartLine{
		ItemID:    id,
		Name:      name,
		Category:  category,
		Type:      domain.ItemTypeProduct,
		UnitPrice: dec(price),
	}
}

// cartWith builds a cart holding each line at the given quantity.
func cartWith(t *testing.T, lines ...domain.CartLine) *Cart {
	t.Helper()
	cart := NewCart()
	for _, line := range lines {
		n := line.Quantity
		if n < 1 {
			n = 1
		}
		line.Quantity = 0
		idx, err := cart.AddItem(line)
		require.NoError(t, err)
		if n > 1 {
			require.NoError(t, cart.UpdateQuantity(idx, n-1))
		}
	}
	return cart
}

func withQty(line domain.CartLine, n int) domain.CartLine {
	line.Quantity = n
	return line
}

func latteBOGO() domain.Promotion {
	return domain.Promotion{
		ID:          "promo-latte",
		Name:        "Latte 2+1",
		Type:        domain.PromotionBOGO,
		Scope:       domain.ScopeSpecificProduct,
		ScopeNames:  []string{"Latte"},
		BuyQuantity: 2,
		GetQuantity: 1,
		Value:       dec("100"),
		ValueType:   domain.ValuePercentage,
		Priority:    3,
	}
}

func tenPercentAll() domain.Discount {
	return domain.Discount{
		ID:       "disc-10",
		Name:     "Senior 10%",
		Type:     domain.ValuePercentage,
		Value:    dec("10"),
		MinSpend: decimal.Zero,
		Scope:    domain.ScopeAll,
	}
}

// assertCartInvariants checks the structural invariants every cart must keep.
func assertCartInvariants(t *testing.T, cart *Cart) {
	t.Helper()
	state := cart.State()
	for i, line := range state.Lines {
		assert.GreaterOrEqual(t, line.Quantity, 1, "line %d has zero quantity", i)
		allocated := 0
		for _, applied := range state.AppliedDiscounts {
			allocated += applied.SelectedItemsQty[i]
		}
		assert.LessOrEqual(t, allocated, line.Quantity, "line %d over-allocated", i)
		if state.AutoPromotion != nil {
			for _, ip := range state.AutoPromotion.ItemPromotions {
				if ip.LineIndex == i {
					assert.LessOrEqual(t, ip.Quantity+allocated, line.Quantity, "promotion overlaps discounted units on line %d", i)
				}
			}
		}
	}
}
