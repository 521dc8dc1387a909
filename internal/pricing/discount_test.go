package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/backend/internal/domain"
)

func TestDiscountNotOfferedWhenPromotionIsBetter(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 3))
	cart.Recompute([]domain.Promotion{latteBOGO()})

	discount := tenPercentAll()
	applied, err := ComputeAllocation(cart.Lines(), discount, map[int]int{0: 3})
	require.NoError(t, err)
	assertDecimal(t, "30", applied.TotalAmount)

	// 30/3 = 10 per unit does not beat the promotion's 100 per unit
	assert.False(t, cart.IsBetterThanPromotion(0, discount))
	assert.False(t, cart.IsDiscountEnabled(discount))
	assert.Equal(t, 0, cart.SelectableQuantity(0, discount))
}

func TestDiscountOfferedWithoutPromotion(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 3))

	discount := tenPercentAll()
	assert.True(t, cart.IsDiscountEnabled(discount))
	assert.Equal(t, 3, cart.SelectableQuantity(0, discount))

	option := cart.DiscountOption(discount)
	assert.True(t, option.Enabled)
	require.Len(t, option.Lines, 1)
	assertDecimal(t, "10", option.Lines[0].DiscountPerUnit)
	assertDecimal(t, "0", option.Lines[0].PromotionPerUnit)
}

func TestDiscountMinSpend(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 2))
	discount := tenPercentAll()
	discount.MinSpend = dec("500")

	assert.False(t, cart.IsDiscountEnabled(discount))
	_, err := ComputeAllocation(cart.Lines(), discount, map[int]int{0: 1})
	require.ErrorIs(t, err, ErrMinSpendNotMet)

	require.NoError(t, cart.UpdateQuantity(0, 3))
	assert.True(t, cart.IsDiscountEnabled(discount))
}

func TestDiscountScopeEligibility(t *testing.T) {
	cart := cartWith(t,
		product("p-1", "Latte", "Coffee", "100"),
		product("p-2", "Cookie", "Pastry", "50"),
	)
	pastryOnly := domain.Discount{ID: "d-2", Name: "Pastry 20", Type: domain.ValueFixed, Value: dec("20"), Scope: domain.ScopeCategory, ApplicableNames: []string{"pastry"}}

	assert.Equal(t, 0, cart.SelectableQuantity(0, pastryOnly))
	assert.Equal(t, 1, cart.SelectableQuantity(1, pastryOnly))
}

func TestComputeAllocationProportional(t *testing.T) {
	lines := []domain.CartLine{
		withQty(product("p-1", "Latte", "Coffee", "100"), 2),
		withQty(product("p-2", "Cookie", "Pastry", "50"), 2),
	}
	fixed := domain.Discount{ID: "d-3", Name: "Fixed 90", Type: domain.ValueFixed, Value: dec("90"), Scope: domain.ScopeAll}

	applied, err := ComputeAllocation(lines, fixed, map[int]int{0: 2, 1: 2})
	require.NoError(t, err)

	assertDecimal(t, "90", applied.TotalAmount)
	require.Len(t, applied.ItemDiscounts, 2)
	assertDecimal(t, "60", applied.ItemDiscounts[0].Amount)
	assertDecimal(t, "30", applied.ItemDiscounts[1].Amount)
}

func TestComputeAllocationFixedCappedBySubtotal(t *testing.T) {
	lines := []domain.CartLine{withQty(product("p-2", "Cookie", "Pastry", "50"), 1)}
	fixed := domain.Discount{ID: "d-3", Name: "Fixed 90", Type: domain.ValueFixed, Value: dec("90"), Scope: domain.ScopeAll}

	applied, err := ComputeAllocation(lines, fixed, map[int]int{0: 1})
	require.NoError(t, err)
	assertDecimal(t, "50", applied.TotalAmount)
}

func TestComputeAllocationSharesSumToTotal(t *testing.T) {
	lines := []domain.CartLine{
		withQty(product("p-1", "A", "X", "33.33"), 1),
		withQty(product("p-2", "B", "X", "33.33"), 1),
		withQty(product("p-3", "C", "X", "33.34"), 1),
	}
	fixed := domain.Discount{ID: "d-4", Name: "Ten", Type: domain.ValueFixed, Value: dec("10"), Scope: domain.ScopeAll}

	applied, err := ComputeAllocation(lines, fixed, map[int]int{0: 1, 1: 1, 2: 1})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range applied.ItemDiscounts {
		sum = sum.Add(item.Amount)
		assert.True(t, item.Amount.Equal(item.Amount.Round(2)), "share %s is not in cents", item.Amount)
	}
	assertDecimal(t, "10", sum)
	assertDecimal(t, "3.33", applied.ItemDiscounts[0].Amount)
	assertDecimal(t, "3.33", applied.ItemDiscounts[1].Amount)
	assertDecimal(t, "3.34", applied.ItemDiscounts[2].Amount)
}

func TestComputeAllocationSmallDiscountNeverNegative(t *testing.T) {
	lines := []domain.CartLine{
		withQty(product("p-1", "A", "X", "1.00"), 1),
		withQty(product("p-2", "B", "X", "1.00"), 1),
		withQty(product("p-3", "C", "X", "1.00"), 1),
		withQty(product("p-4", "D", "X", "1.00"), 1),
	}
	fixed := domain.Discount{ID: "d-5", Name: "Two cents", Type: domain.ValueFixed, Value: dec("0.02"), Scope: domain.ScopeAll}

	applied, err := ComputeAllocation(lines, fixed, map[int]int{0: 1, 1: 1, 2: 1, 3: 1})
	require.NoError(t, err)
	require.Len(t, applied.ItemDiscounts, 4)

	sum := decimal.Zero
	for _, item := range applied.ItemDiscounts {
		assert.False(t, item.Amount.IsNegative(), "line %d share %s", item.LineIndex, item.Amount)
		assert.True(t, item.Amount.Equal(item.Amount.Round(2)), "share %s is not in cents", item.Amount)
		sum = sum.Add(item.Amount)
	}
	assertDecimal(t, "0.02", sum)
	assertDecimal(t, "0.01", applied.ItemDiscounts[0].Amount)
	assertDecimal(t, "0.01", applied.ItemDiscounts[1].Amount)
	assertDecimal(t, "0", applied.ItemDiscounts[2].Amount)
	assertDecimal(t, "0", applied.ItemDiscounts[3].Amount)
}

func TestComputeAllocationEmptySelection(t *testing.T) {
	lines := []domain.CartLine{product("p-1", "Latte", "Coffee", "100")}

	_, err := ComputeAllocation(lines, tenPercentAll(), nil)
	require.ErrorIs(t, err, ErrEmptySelection)
	_, err = ComputeAllocation(lines, tenPercentAll(), map[int]int{0: 0})
	require.ErrorIs(t, err, ErrEmptySelection)
	_, err = ComputeAllocation(lines, tenPercentAll(), map[int]int{0: 2})
	require.ErrorIs(t, err, ErrSelectionExceedsAvail)
	_, err = ComputeAllocation(lines, tenPercentAll(), map[int]int{4: 1})
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestApplyDiscountClearsAutoPromotion(t *testing.T) {
	cart := cartWith(t,
		withQty(product("p-1", "Latte", "Coffee", "100"), 3),
		product("p-2", "Cookie", "Pastry", "50"),
	)
	cart.Recompute([]domain.Promotion{latteBOGO()})
	require.NotNil(t, cart.AutoPromotion())

	cookieDeal := domain.Discount{ID: "d-2", Name: "Cookie 20", Type: domain.ValueFixed, Value: dec("20"), Scope: domain.ScopeSpecificProduct, ApplicableNames: []string{"Cookie"}}
	applied, err := ComputeAllocation(cart.Lines(), cookieDeal, map[int]int{1: 1})
	require.NoError(t, err)
	require.NoError(t, cart.ApplyDiscount(applied))

	assert.Nil(t, cart.AutoPromotion())
	assert.Len(t, cart.AppliedDiscounts(), 1)
}

func TestApplyDiscountRejectsDoubleAllocation(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 2))
	first, err := ComputeAllocation(cart.Lines(), tenPercentAll(), map[int]int{0: 2})
	require.NoError(t, err)
	require.NoError(t, cart.ApplyDiscount(first))

	second, err := ComputeAllocation(cart.Lines(), tenPercentAll(), map[int]int{0: 1})
	require.NoError(t, err)
	require.ErrorIs(t, cart.ApplyDiscount(second), ErrSelectionExceedsAvail)
	assert.Equal(t, 0, cart.AvailableQuantity(0))
	assert.False(t, cart.IsDiscountEnabled(tenPercentAll()))
	assertCartInvariants(t, cart)
}

func TestRemoveDiscountDoesNotRestorePromotion(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 3), product("p-2", "Cookie", "Pastry", "50"))
	cart.Recompute([]domain.Promotion{latteBOGO()})
	cookieDeal := domain.Discount{ID: "d-2", Name: "Cookie 20", Type: domain.ValueFixed, Value: dec("20"), Scope: domain.ScopeSpecificProduct, ApplicableNames: []string{"Cookie"}}
	applied, err := ComputeAllocation(cart.Lines(), cookieDeal, map[int]int{1: 1})
	require.NoError(t, err)
	require.NoError(t, cart.ApplyDiscount(applied))

	removed, err := cart.RemoveDiscount(0)
	require.NoError(t, err)
	assert.Equal(t, "d-2", removed.Discount.ID)
	assert.Nil(t, cart.AutoPromotion())

	cart.Recompute([]domain.Promotion{latteBOGO()})
	assert.NotNil(t, cart.AutoPromotion())

	_, err = cart.RemoveDiscount(0)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestRemoveAllDiscounts(t *testing.T) {
	cart := cartWith(t, withQty(product("p-1", "Latte", "Coffee", "100"), 2))
	for i := 0; i < 2; i++ {
		applied, err := ComputeAllocation(cart.Lines(), tenPercentAll(), map[int]int{0: 1})
		require.NoError(t, err)
		require.NoError(t, cart.ApplyDiscount(applied))
	}

	assert.Equal(t, 2, cart.RemoveAllDiscounts())
	assert.Empty(t, cart.AppliedDiscounts())
	assert.Equal(t, 2, cart.AvailableQuantity(0))
}

func TestAllocationRoundTripIsStable(t *testing.T) {
	cart := cartWith(t,
		withQty(product("p-1", "Latte", "Coffee", "120"), 2),
		withQty(product("p-2", "Cookie", "Pastry", "45"), 3),
	)
	discount := domain.Discount{ID: "d-5", Name: "Fifteen", Type: domain.ValuePercentage, Value: dec("15"), Scope: domain.ScopeAll, ApplicableNames: []string{}}
	selected := map[int]int{0: 2, 1: 1}

	first, err := ComputeAllocation(cart.Lines(), discount, selected)
	require.NoError(t, err)
	require.NoError(t, cart.ApplyDiscount(first))
	_, err = cart.RemoveDiscount(0)
	require.NoError(t, err)
	second, err := ComputeAllocation(cart.Lines(), discount, selected)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[int]int{0: 2, 1: 1}, selected)
}
