// Package catalog turns the loosely typed discount and promotion records
// served by the collaborator services into the typed values the pricing
// engine works with.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/pricing"
)

var ErrInvalidRecord = errors.New("invalid catalog record")

var (
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	percentPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	currencyPattern = regexp.MustCompile(`(?i)(?:₱|\$|php)\s*(\d+(?:\.\d+)?)`)
	buyGetPattern   = regexp.MustCompile(`(?i)buy\s*(\d+)\D{0,12}?get\s*(\d+)`)
	plusPattern     = regexp.MustCompile(`(\d+)\s*\+\s*(\d+)`)
)

var hundred = decimal.NewFromInt(100)

// ParseDiscount maps a Discounts service record onto a Discount. A value
// carrying "%" or a percentage type is a percentage, anything else is a
// fixed amount.
func ParseDiscount(raw domain.RawDiscount) (domain.Discount, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return domain.Discount{}, fmt.Errorf("%w: discount %s has no name", ErrInvalidRecord, raw.ID)
	}
	text := raw.Discount.String()
	value, ok := firstNumber(text)
	if !ok || !value.IsPositive() {
		return domain.Discount{}, fmt.Errorf("%w: discount %q has no usable value %q", ErrInvalidRecord, name, text)
	}

	valueType := domain.ValueFixed
	if strings.Contains(text, "%") || strings.Contains(strings.ToLower(raw.Type), "percent") {
		valueType = domain.ValuePercentage
	}
	if valueType == domain.ValuePercentage && value.GreaterThan(hundred) {
		return domain.Discount{}, fmt.Errorf("%w: discount %q is over 100%%", ErrInvalidRecord, name)
	}

	minSpend := decimal.Zero
	if spend, ok := firstNumber(raw.MinSpend.String()); ok {
		minSpend = spend
	}

	scope := discountScope(raw.ApplicationType)
	var names []string
	switch scope {
	case domain.ScopeCategory:
		names = pick(raw.ApplicableCategories, raw.ApplicableProducts)
	case domain.ScopeSpecificProduct:
		names = pick(raw.ApplicableProducts, raw.ApplicableCategories)
	}

	return domain.Discount{
		ID:              strings.TrimSpace(raw.ID.String()),
		Name:            name,
		Type:            valueType,
		Value:           value,
		MinSpend:        minSpend,
		Scope:           scope,
		ApplicableNames: names,
	}, nil
}

// ParsePromotion maps a Promotions service record onto a Promotion. BOGO
// quantities come from "Buy N Get M" or "N+M" in the value or the name and
// default to 1 and 1; the free units are 100% off unless the value names a
// percentage or a currency amount.
func ParsePromotion(raw domain.RawPromotion) (domain.Promotion, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return domain.Promotion{}, fmt.Errorf("%w: promotion %s has no name", ErrInvalidRecord, raw.ID)
	}
	text := raw.Value.String()

	promo := domain.Promotion{
		ID:   strings.TrimSpace(raw.ID.String()),
		Name: name,
		Type: promotionType(raw.Type, text),
	}
	promo.Scope, promo.ScopeNames = promotionScope(raw.Products.String(), raw.ApplicationType)

	switch promo.Type {
	case domain.PromotionBOGO:
		promo.BuyQuantity, promo.GetQuantity = bogoQuantities(text, name)
		promo.ValueType, promo.Value = bogoReduction(text)
	case domain.PromotionPercentage:
		value, ok := firstNumber(text)
		if !ok || !value.IsPositive() || value.GreaterThan(hundred) {
			return domain.Promotion{}, fmt.Errorf("%w: promotion %q has bad percentage %q", ErrInvalidRecord, name, text)
		}
		promo.ValueType, promo.Value = domain.ValuePercentage, value
	default:
		value, ok := firstNumber(text)
		if !ok || !value.IsPositive() {
			return domain.Promotion{}, fmt.Errorf("%w: promotion %q has bad amount %q", ErrInvalidRecord, name, text)
		}
		promo.ValueType, promo.Value = domain.ValueFixed, value
	}
	promo.Priority = pricing.ScopePriority(promo.Scope)
	return promo, nil
}

// IsActive keeps records whose status is active. A missing status does not
// count as active.
func IsActive(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "active")
}

func firstNumber(text string) (decimal.Decimal, bool) {
	match := numberPattern.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

func discountScope(applicationType string) domain.Scope {
	switch normalize(applicationType) {
	case "category", "categories", "specific_category", "specific_categories":
		return domain.ScopeCategory
	case "specific_products", "specific_product", "product", "products":
		return domain.ScopeSpecificProduct
	default:
		return domain.ScopeAll
	}
}

func promotionType(kind string, value string) domain.PromotionType {
	switch k := normalize(kind); {
	case strings.Contains(k, "bogo"), strings.Contains(k, "buy"):
		return domain.PromotionBOGO
	case strings.Contains(k, "percent"):
		return domain.PromotionPercentage
	case strings.Contains(k, "fixed"), strings.Contains(k, "amount"):
		return domain.PromotionFixed
	}
	switch {
	case buyGetPattern.MatchString(value), plusPattern.MatchString(value):
		return domain.PromotionBOGO
	case strings.Contains(value, "%"):
		return domain.PromotionPercentage
	default:
		return domain.PromotionFixed
	}
}

func promotionScope(products string, applicationType string) (domain.Scope, []string) {
	switch normalize(products) {
	case "", "all", "all_products":
		return domain.ScopeAll, nil
	}
	names := splitNames(products)
	if len(names) == 0 {
		return domain.ScopeAll, nil
	}
	if discountScope(applicationType) == domain.ScopeCategory {
		return domain.ScopeCategory, names
	}
	return domain.ScopeSpecificProduct, names
}

func bogoQuantities(texts ...string) (int, int) {
	for _, text := range texts {
		for _, pattern := range []*regexp.Regexp{buyGetPattern, plusPattern} {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			buy, get := atoi(m[1]), atoi(m[2])
			if buy > 0 && get > 0 {
				return buy, get
			}
		}
	}
	return 1, 1
}

func bogoReduction(text string) (domain.ValueType, decimal.Decimal) {
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		if value, err := decimal.NewFromString(m[1]); err == nil && value.IsPositive() && value.LessThanOrEqual(hundred) {
			return domain.ValuePercentage, value
		}
	}
	if m := currencyPattern.FindStringSubmatch(strings.ReplaceAll(text, ",", "")); m != nil {
		if value, err := decimal.NewFromString(m[1]); err == nil && value.IsPositive() {
			return domain.ValueFixed, value
		}
	}
	return domain.ValuePercentage, hundred
}

func pick(primary []string, fallback []string) []string {
	if len(primary) > 0 {
		return append([]string(nil), primary...)
	}
	if len(fallback) > 0 {
		return append([]string(nil), fallback...)
	}
	return nil
}

func splitNames(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(value)
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
