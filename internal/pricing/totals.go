package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
)

const (
	PaymentCash  = "cash"
	PaymentGCash = "gcash"
	PaymentCard  = "card"
)

func (c *Cart) Totals() domain.CartTotals {
	subtotal := decimal.Zero
	addonTotal := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(qty(line.Quantity)))
		addonTotal = addonTotal.Add(AddonUnitTotal(line).Mul(qty(line.Quantity)))
	}

	promotionTotal := decimal.Zero
	if c.promotion != nil {
		promotionTotal = c.promotion.DiscountAmount
	}
	discountTotal := decimal.Zero
	for _, applied := range c.discounts {
		discountTotal = discountTotal.Add(applied.TotalAmount)
	}

	total := subtotal.Add(addonTotal).Sub(promotionTotal).Sub(discountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return domain.CartTotals{
		Subtotal:       money(subtotal),
		AddonTotal:     money(addonTotal),
		PromotionTotal: money(promotionTotal),
		DiscountTotal:  money(discountTotal),
		Total:          money(total),
	}
}

type SaleOptions struct {
	OrderType      string
	PaymentMethod  string
	GCashReference string
}

// BuildSale assembles the finalized sale payload. Each cart item carries the
// discount and promotion amounts recorded against it, which is what refunds
// later spread back over the units.
func (c *Cart) BuildSale(opts SaleOptions) (domain.SaleRequest, error) {
	if len(c.lines) == 0 {
		return domain.SaleRequest{}, ErrEmptyCart
	}
	method := strings.ToLower(strings.TrimSpace(opts.PaymentMethod))
	switch method {
	case PaymentCash, PaymentCard:
	case PaymentGCash:
		if strings.TrimSpace(opts.GCashReference) == "" {
			return domain.SaleRequest{}, ErrGCashReferenceRequired
		}
	default:
		return domain.SaleRequest{}, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, opts.PaymentMethod)
	}

	items := make([]domain.SaleCartItem, len(c.lines))
	for i, line := range c.lines {
		addons := make([]domain.SaleAddon, 0, len(line.Addons))
		for _, addon := range line.Addons {
			addons = append(addons, domain.SaleAddon{
				AddonID:   addon.AddonID,
				Name:      addon.Name,
				UnitPrice: addon.UnitPrice,
				Quantity:  addon.Quantity * line.Quantity,
			})
		}
		items[i] = domain.SaleCartItem{
			ID:             line.ItemID,
			Name:           line.Name,
			Type:           line.Type,
			Category:       line.Category,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Addons:         addons,
			ItemDiscounts:  []domain.SaleItemDiscount{},
			ItemPromotions: []domain.SaleItemPromotion{},
		}
	}

	sale := domain.SaleRequest{
		CartItems:                 items,
		OrderType:                 strings.TrimSpace(opts.OrderType),
		PaymentMethod:             method,
		AppliedDiscounts:          make([]domain.SaleAppliedDiscount, 0, len(c.discounts)),
		AppliedPromotions:         []domain.SaleAppliedPromotion{},
		PromotionalDiscountAmount: decimal.Zero,
		ManualDiscountAmount:      decimal.Zero,
	}
	if method == PaymentGCash {
		sale.GCashReference = strings.TrimSpace(opts.GCashReference)
	}

	for _, applied := range c.discounts {
		for _, item := range applied.ItemDiscounts {
			if item.LineIndex < 0 || item.LineIndex >= len(items) {
				continue
			}
			items[item.LineIndex].ItemDiscounts = append(items[item.LineIndex].ItemDiscounts, domain.SaleItemDiscount{
				DiscountName:       applied.Discount.Name,
				QuantityDiscounted: item.Quantity,
				DiscountAmount:     item.Amount,
			})
		}
		sale.AppliedDiscounts = append(sale.AppliedDiscounts, domain.SaleAppliedDiscount{
			DiscountID:     applied.Discount.ID,
			DiscountName:   applied.Discount.Name,
			DiscountAmount: applied.TotalAmount,
		})
		sale.ManualDiscountAmount = sale.ManualDiscountAmount.Add(applied.TotalAmount)
	}

	if c.promotion != nil {
		byID := make(map[string]int)
		for _, ip := range c.promotion.ItemPromotions {
			if ip.LineIndex < 0 || ip.LineIndex >= len(items) {
				continue
			}
			items[ip.LineIndex].ItemPromotions = append(items[ip.LineIndex].ItemPromotions, domain.SaleItemPromotion{
				PromotionName:    ip.PromotionName,
				QuantityPromoted: ip.Quantity,
				PromotionAmount:  ip.Amount,
			})
			key := ip.PromotionID + "\x00" + ip.PromotionName
			pos, ok := byID[key]
			if !ok {
				pos = len(sale.AppliedPromotions)
				byID[key] = pos
				sale.AppliedPromotions = append(sale.AppliedPromotions, domain.SaleAppliedPromotion{
					PromotionID:     ip.PromotionID,
					PromotionName:   ip.PromotionName,
					PromotionAmount: decimal.Zero,
				})
			}
			sale.AppliedPromotions[pos].PromotionAmount = sale.AppliedPromotions[pos].PromotionAmount.Add(ip.Amount)
		}
		sale.PromotionalDiscountAmount = c.promotion.DiscountAmount
	}

	return sale, nil
}
