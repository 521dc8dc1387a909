package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
)

func IsEligible(line domain.CartLine, discount domain.Discount) bool {
	return MatchesScope(line, discount.Scope, discount.ApplicableNames)
}

// DiscountPerUnit is the reduction discount gives one unit of line.
func DiscountPerUnit(line domain.CartLine, discount domain.Discount) decimal.Decimal {
	return unitReduction(discount.Type, discount.Value, EffectiveUnitPrice(line))
}

// IsBetterThanPromotion reports whether discount reduces a unit of the line
// strictly more than the auto promotion currently covering it.
func (c *Cart) IsBetterThanPromotion(index int, discount domain.Discount) bool {
	if index < 0 || index >= len(c.lines) {
		return false
	}
	perUnit := DiscountPerUnit(c.lines[index], discount)
	return perUnit.GreaterThan(PromotionPerUnit(c.promotion, index))
}

// AvailableQuantity is the line quantity minus units committed to applied discounts.
func (c *Cart) AvailableQuantity(index int) int {
	if index < 0 || index >= len(c.lines) {
		return 0
	}
	n := c.lines[index].Quantity - c.AllocatedQuantity(index)
	if n < 0 {
		return 0
	}
	return n
}

// SelectableQuantity is how many units of a line a new discount may take.
func (c *Cart) SelectableQuantity(index int, discount domain.Discount) int {
	if index < 0 || index >= len(c.lines) {
		return 0
	}
	if !IsEligible(c.lines[index], discount) || !c.IsBetterThanPromotion(index, discount) {
		return 0
	}
	return c.AvailableQuantity(index)
}

// GrossSubtotal is the cart value before any promotion or discount.
func (c *Cart) GrossSubtotal() decimal.Decimal {
	return grossSubtotal(c.lines)
}

func grossSubtotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(EffectiveUnitPrice(line).Mul(qty(line.Quantity)))
	}
	return total
}

// IsDiscountEnabled reports whether discount can be offered: the cart meets
// its minimum spend and at least one unit is eligible, unallocated and better
// off with the discount than with its promotion.
func (c *Cart) IsDiscountEnabled(discount domain.Discount) bool {
	if c.GrossSubtotal().LessThan(discount.MinSpend) {
		return false
	}
	for i := range c.lines {
		if c.SelectableQuantity(i, discount) > 0 {
			return true
		}
	}
	return false
}

// DiscountOption describes discount against the current cart.
func (c *Cart) DiscountOption(discount domain.Discount) domain.DiscountOption {
	option := domain.DiscountOption{
		Discount: cloneDiscount(discount),
		Enabled:  c.IsDiscountEnabled(discount),
		Lines:    make([]domain.DiscountLineOption, 0, len(c.lines)),
	}
	for i, line := range c.lines {
		option.Lines = append(option.Lines, domain.DiscountLineOption{
			LineIndex:          i,
			Eligible:           IsEligible(line, discount),
			BeatsPromotion:     c.IsBetterThanPromotion(i, discount),
			SelectableQuantity: c.SelectableQuantity(i, discount),
			DiscountPerUnit:    money(DiscountPerUnit(line, discount)),
			PromotionPerUnit:   money(PromotionPerUnit(c.promotion, i)),
		})
	}
	return option
}

// ComputeAllocation splits discount across the selected units in proportion
// to each line's selected subtotal. Shares are cut down to cents and the
// leftover cents go to the lines with the largest cut-off remainders, so
// shares always sum to the total and none is negative.
func ComputeAllocation(lines []domain.CartLine, discount domain.Discount, selected map[int]int) (domain.AppliedDiscount, error) {
	indices := make([]int, 0, len(selected))
	for idx, n := range selected {
		if n <= 0 {
			continue
		}
		if idx < 0 || idx >= len(lines) {
			return domain.AppliedDiscount{}, fmt.Errorf("%w: line %d", ErrLineNotFound, idx)
		}
		if n > lines[idx].Quantity {
			return domain.AppliedDiscount{}, fmt.Errorf("%w: line %d has %d unit(s)", ErrSelectionExceedsAvail, idx, lines[idx].Quantity)
		}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return domain.AppliedDiscount{}, ErrEmptySelection
	}
	if gross := grossSubtotal(lines); gross.LessThan(discount.MinSpend) {
		return domain.AppliedDiscount{}, fmt.Errorf("%w: spend %s of %s", ErrMinSpendNotMet, money(gross).StringFixed(2), money(discount.MinSpend).StringFixed(2))
	}
	sort.Ints(indices)

	subtotals := make([]decimal.Decimal, len(indices))
	selectedSubtotal := decimal.Zero
	for i, idx := range indices {
		subtotals[i] = EffectiveUnitPrice(lines[idx]).Mul(qty(selected[idx]))
		selectedSubtotal = selectedSubtotal.Add(subtotals[i])
	}

	total := decimal.Zero
	if selectedSubtotal.IsPositive() && !discount.Value.IsNegative() {
		if discount.Type == domain.ValuePercentage {
			total = money(selectedSubtotal.Mul(decimal.Min(discount.Value, hundred)).Div(hundred))
		} else {
			total = money(decimal.Min(discount.Value, selectedSubtotal))
		}
	}

	result := domain.AppliedDiscount{
		Discount:         cloneDiscount(discount),
		SelectedItemsQty: make(map[int]int, len(indices)),
		ItemDiscounts:    make([]domain.ItemDiscount, 0, len(indices)),
		TotalAmount:      total,
	}
	shares := apportion(total, subtotals, selectedSubtotal)
	for i, idx := range indices {
		result.SelectedItemsQty[idx] = selected[idx]
		result.ItemDiscounts = append(result.ItemDiscounts, domain.ItemDiscount{
			LineIndex: idx,
			LineID:    lines[idx].LineID,
			Quantity:  selected[idx],
			Amount:    shares[i],
		})
	}
	return result, nil
}

var cent = decimal.New(1, -2)

// apportion splits total over weights using largest remainders. Every share
// is a whole number of cents between zero and total.
func apportion(total decimal.Decimal, weights []decimal.Decimal, sum decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if !total.IsPositive() || !sum.IsPositive() {
		return shares
	}

	remainders := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, weight := range weights {
		exact := weight.Mul(total).Div(sum)
		shares[i] = exact.Truncate(2)
		remainders[i] = exact.Sub(shares[i])
		allocated = allocated.Add(shares[i])
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := remainders[order[a]], remainders[order[b]]
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return weights[order[a]].GreaterThan(weights[order[b]])
	})

	left := total.Sub(allocated).Div(cent).IntPart()
	for k := 0; k < int(left) && k < len(order); k++ {
		shares[order[k]] = shares[order[k]].Add(cent)
	}
	return shares
}

// ApplyDiscount commits an allocation after re-checking it against the
// current cart. Applying any manual discount clears the whole auto promotion.
func (c *Cart) ApplyDiscount(applied domain.AppliedDiscount) error {
	if len(applied.SelectedItemsQty) == 0 {
		return ErrEmptySelection
	}
	total := 0
	for idx, n := range applied.SelectedItemsQty {
		if idx < 0 || idx >= len(c.lines) {
			return fmt.Errorf("%w: line %d", ErrLineNotFound, idx)
		}
		if n < 0 {
			return fmt.Errorf("%w: negative quantity for line %d", ErrSelectionExceedsAvail, idx)
		}
		if n > c.AvailableQuantity(idx) {
			return fmt.Errorf("%w: line %d has %d unit(s) available", ErrSelectionExceedsAvail, idx, c.AvailableQuantity(idx))
		}
		total += n
	}
	if total == 0 {
		return ErrEmptySelection
	}

	c.discounts = append(c.discounts, cloneApplied(applied))
	c.promotion = nil
	return nil
}

// RemoveDiscount drops one applied discount. The auto promotion is not
// restored here; the next Recompute picks up the freed units.
func (c *Cart) RemoveDiscount(index int) (domain.AppliedDiscount, error) {
	if index < 0 || index >= len(c.discounts) {
		return domain.AppliedDiscount{}, ErrDiscountNotFound
	}
	removed := c.discounts[index]
	c.discounts = append(c.discounts[:index], c.discounts[index+1:]...)
	if len(c.discounts) == 0 {
		c.discounts = nil
	}
	return removed, nil
}

func (c *Cart) RemoveAllDiscounts() int {
	n := len(c.discounts)
	c.discounts = nil
	return n
}
