package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
)

// ResolvePromotions picks, for every cart line, the single automatic
// promotion with the largest reduction over the units not held by applied
// discounts. Ties keep the promotion found first in catalog order. Inputs are
// not modified; nil is returned when nothing applies.
func ResolvePromotions(lines []domain.CartLine, promotions []domain.Promotion, applied []domain.AppliedDiscount) *domain.AutoPromotion {
	if len(lines) == 0 || len(promotions) == 0 {
		return nil
	}

	available := make([]int, len(lines))
	for i, line := range lines {
		n := line.Quantity - allocatedQuantity(applied, i)
		if n < 0 {
			n = 0
		}
		available[i] = n
	}

	best := make(map[int]domain.ItemPromotion, len(lines))
	consider := func(candidate domain.ItemPromotion) {
		if candidate.Quantity <= 0 || !candidate.Amount.IsPositive() {
			return
		}
		current, ok := best[candidate.LineIndex]
		if !ok || candidate.Amount.GreaterThan(current.Amount) {
			best[candidate.LineIndex] = candidate
		}
	}

	for _, promo := range promotions {
		switch promo.Type {
		case domain.PromotionBOGO:
			for _, candidate := range bogoCandidates(lines, available, promo) {
				consider(candidate)
			}
		case domain.PromotionPercentage, domain.PromotionFixed:
			for i, line := range lines {
				if available[i] == 0 || !MatchesScope(line, promo.Scope, promo.ScopeNames) {
					continue
				}
				reduction := unitReduction(promotionValueType(promo), promo.Value, EffectiveUnitPrice(line))
				consider(itemPromotion(promo, i, line, available[i], reduction))
			}
		}
	}

	if len(best) == 0 {
		return nil
	}
	return aggregate(best)
}

// bogoCandidates evaluates a buy-N-get-M promotion. The first scope name is
// the buy item and the second the get item; a single name means buy and get
// the same product. Without names every matching line is its own buy and get
// item.
func bogoCandidates(lines []domain.CartLine, available []int, promo domain.Promotion) []domain.ItemPromotion {
	buyQty := promo.BuyQuantity
	if buyQty < 1 {
		buyQty = 1
	}
	getQty := promo.GetQuantity
	if getQty < 1 {
		getQty = 1
	}
	valueType, value := bogoValue(promo)

	names := make([]string, 0, 2)
	for _, name := range promo.ScopeNames {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		var out []domain.ItemPromotion
		for i, line := range lines {
			if available[i] == 0 || !MatchesScope(line, promo.Scope, promo.ScopeNames) {
				continue
			}
			units := min((available[i]/buyQty)*getQty, available[i])
			reduction := unitReduction(valueType, value, EffectiveUnitPrice(line))
			out = append(out, itemPromotion(promo, i, line, units, reduction))
		}
		return out
	}

	buyName := names[0]
	getName := buyName
	if len(names) > 1 {
		getName = names[1]
	}

	availableBuy := 0
	availableGet := 0
	for i, line := range lines {
		if matchesBOGOItem(line, promo.Scope, buyName) {
			availableBuy += available[i]
		}
		if matchesBOGOItem(line, promo.Scope, getName) {
			availableGet += available[i]
		}
	}

	sets := availableBuy / buyQty
	remaining := min(sets*getQty, availableGet)
	if remaining <= 0 {
		return nil
	}

	var out []domain.ItemPromotion
	for i, line := range lines {
		if remaining == 0 {
			break
		}
		if available[i] == 0 || !matchesBOGOItem(line, promo.Scope, getName) {
			continue
		}
		units := min(remaining, available[i])
		remaining -= units
		reduction := unitReduction(valueType, value, EffectiveUnitPrice(line))
		out = append(out, itemPromotion(promo, i, line, units, reduction))
	}
	return out
}

func matchesBOGOItem(line domain.CartLine, scope domain.Scope, name string) bool {
	if scope == domain.ScopeCategory {
		return containsName([]string{name}, line.Category)
	}
	return MatchesScope(line, domain.ScopeSpecificProduct, []string{name})
}

// bogoValue defaults an unspecified BOGO reduction to a free unit.
func bogoValue(promo domain.Promotion) (domain.ValueType, decimal.Decimal) {
	if !promo.Value.IsPositive() {
		return domain.ValuePercentage, hundred
	}
	if promo.ValueType == domain.ValueFixed {
		return domain.ValueFixed, promo.Value
	}
	return domain.ValuePercentage, promo.Value
}

func promotionValueType(promo domain.Promotion) domain.ValueType {
	if promo.ValueType != "" {
		return promo.ValueType
	}
	if promo.Type == domain.PromotionPercentage {
		return domain.ValuePercentage
	}
	return domain.ValueFixed
}

func itemPromotion(promo domain.Promotion, index int, line domain.CartLine, units int, reduction decimal.Decimal) domain.ItemPromotion {
	priority := promo.Priority
	if priority == 0 {
		priority = ScopePriority(promo.Scope)
	}
	return domain.ItemPromotion{
		LineIndex:     index,
		LineID:        line.LineID,
		Quantity:      units,
		Amount:        money(reduction.Mul(qty(units))),
		PromotionID:   promo.ID,
		PromotionName: promo.Name,
		Priority:      priority,
	}
}

func aggregate(best map[int]domain.ItemPromotion) *domain.AutoPromotion {
	indices := make([]int, 0, len(best))
	for idx := range best {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	result := &domain.AutoPromotion{
		ItemPromotions: make([]domain.ItemPromotion, 0, len(indices)),
		DiscountAmount: decimal.Zero,
	}
	seen := make(map[string]bool)
	names := make([]string, 0, 2)
	for _, idx := range indices {
		ip := best[idx]
		result.ItemPromotions = append(result.ItemPromotions, ip)
		result.DiscountAmount = result.DiscountAmount.Add(ip.Amount)
		if !seen[ip.PromotionName] {
			seen[ip.PromotionName] = true
			names = append(names, ip.PromotionName)
		}
	}
	result.Name = strings.Join(names, " + ")
	result.IsMultiPromotion = len(names) > 1
	return result
}

// PromotionPerUnit is the auto promotion reduction per promoted unit of a
// line, or zero when no promotion covers it.
func PromotionPerUnit(promotion *domain.AutoPromotion, index int) decimal.Decimal {
	if promotion == nil {
		return decimal.Zero
	}
	for _, ip := range promotion.ItemPromotions {
		if ip.LineIndex == index && ip.Quantity > 0 {
			return ip.Amount.Div(qty(ip.Quantity))
		}
	}
	return decimal.Zero
}
