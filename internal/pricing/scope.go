// Package pricing holds the cart pricing engine: cart mutations, automatic
// promotion resolution, manual discount allocation, checkout totals and
// refund reconstruction. Everything here is pure computation over domain
// values; collaborator calls live in the service layer.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

func normalizeName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func containsName(names []string, value string) bool {
	target := normalizeName(value)
	if target == "" {
		return false
	}
	for _, name := range names {
		if normalizeName(name) == target {
			return true
		}
	}
	return false
}

// MatchesScope reports whether line falls inside a discount or promotion scope.
// Specific-product scopes also accept category names, since catalog data
// often lists a category where a product was meant.
func MatchesScope(line domain.CartLine, scope domain.Scope, names []string) bool {
	switch scope {
	case domain.ScopeAll, "":
		return true
	case domain.ScopeCategory:
		return containsName(names, line.Category)
	case domain.ScopeSpecificProduct:
		return containsName(names, line.Name) || containsName(names, line.Category)
	default:
		return false
	}
}

// ScopePriority ranks scope specificity. It is recorded on item promotions
// and never used to filter candidates.
func ScopePriority(scope domain.Scope) int {
	switch scope {
	case domain.ScopeSpecificProduct:
		return 3
	case domain.ScopeCategory:
		return 2
	default:
		return 1
	}
}

// AddonUnitTotal is the add-on price carried by one unit of the line.
func AddonUnitTotal(line domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, addon := range line.Addons {
		total = total.Add(addon.UnitPrice.Mul(decimal.NewFromInt(int64(addon.Quantity))))
	}
	return total
}

// EffectiveUnitPrice is the discount and promotion base of one unit.
func EffectiveUnitPrice(line domain.CartLine) decimal.Decimal {
	return line.UnitPrice.Add(AddonUnitTotal(line))
}

// unitReduction is the per-unit reduction of a percentage or fixed value.
// Fixed values never exceed the unit price.
func unitReduction(valueType domain.ValueType, value decimal.Decimal, unit decimal.Decimal) decimal.Decimal {
	if value.IsNegative() || !unit.IsPositive() {
		return decimal.Zero
	}
	if valueType == domain.ValuePercentage {
		pct := decimal.Min(value, hundred)
		return unit.Mul(pct).Div(hundred)
	}
	return decimal.Min(value, unit)
}

func qty(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func money(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
