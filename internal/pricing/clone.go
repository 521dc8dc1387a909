package pricing

import "cafepos/backend/internal/domain"

func cloneLine(src domain.CartLine) domain.CartLine {
	dst := src
	if src.Addons != nil {
		dst.Addons = append([]domain.Addon(nil), src.Addons...)
	}
	if src.MaxQuantity != nil {
		ceiling := *src.MaxQuantity
		dst.MaxQuantity = &ceiling
	}
	return dst
}

func cloneLines(src []domain.CartLine) []domain.CartLine {
	if src == nil {
		return nil
	}
	dst := make([]domain.CartLine, len(src))
	for i, line := range src {
		dst[i] = cloneLine(line)
	}
	return dst
}

func cloneDiscount(src domain.Discount) domain.Discount {
	dst := src
	if src.ApplicableNames != nil {
		dst.ApplicableNames = append([]string(nil), src.ApplicableNames...)
	}
	return dst
}

func cloneSelection(src map[int]int) map[int]int {
	dst := make(map[int]int, len(src))
	for idx, n := range src {
		dst[idx] = n
	}
	return dst
}

func cloneApplied(src domain.AppliedDiscount) domain.AppliedDiscount {
	dst := src
	dst.Discount = cloneDiscount(src.Discount)
	dst.SelectedItemsQty = cloneSelection(src.SelectedItemsQty)
	if src.ItemDiscounts != nil {
		dst.ItemDiscounts = append([]domain.ItemDiscount(nil), src.ItemDiscounts...)
	}
	return dst
}

func cloneAppliedList(src []domain.AppliedDiscount) []domain.AppliedDiscount {
	if src == nil {
		return nil
	}
	dst := make([]domain.AppliedDiscount, len(src))
	for i, applied := range src {
		dst[i] = cloneApplied(applied)
	}
	return dst
}

func clonePromotion(src *domain.AutoPromotion) *domain.AutoPromotion {
	if src == nil {
		return nil
	}
	dst := *src
	if src.ItemPromotions != nil {
		dst.ItemPromotions = append([]domain.ItemPromotion(nil), src.ItemPromotions...)
	}
	return &dst
}
