package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Types in this file mirror the Sales service contract and keep its camelCase field names.

type SaleAddon struct {
	AddonID   string          `json:"addonId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type SaleItemDiscount struct {
	DiscountName       string          `json:"discountName"`
	QuantityDiscounted int             `json:"quantityDiscounted"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
}

type SaleItemPromotion struct {
	PromotionName    string          `json:"promotionName"`
	QuantityPromoted int             `json:"quantityPromoted"`
	PromotionAmount  decimal.Decimal `json:"promotionAmount"`
}

type SaleCartItem struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Type           ItemType            `json:"type"`
	Category       string              `json:"category"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"price"`
	Addons         []SaleAddon         `json:"addons"`
	ItemDiscounts  []SaleItemDiscount  `json:"itemDiscounts"`
	ItemPromotions []SaleItemPromotion `json:"itemPromotions"`
}

type SaleAppliedDiscount struct {
	DiscountID     string          `json:"discountId"`
	DiscountName   string          `json:"discountName"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

type SaleAppliedPromotion struct {
	PromotionID     string          `json:"promotionId"`
	PromotionName   string          `json:"promotionName"`
	PromotionAmount decimal.Decimal `json:"promotionAmount"`
}

type SaleRequest struct {
	CartItems                 []SaleCartItem         `json:"cartItems"`
	OrderType                 string                 `json:"orderType"`
	PaymentMethod             string                 `json:"paymentMethod"`
	AppliedDiscounts          []SaleAppliedDiscount  `json:"appliedDiscounts"`
	AppliedPromotions         []SaleAppliedPromotion `json:"appliedPromotions"`
	PromotionalDiscountAmount decimal.Decimal        `json:"promotionalDiscountAmount"`
	ManualDiscountAmount      decimal.Decimal        `json:"manualDiscountAmount"`
	GCashReference            string                 `json:"gcashReference,omitempty"`
}

type SaleReceipt struct {
	ID      FlexString `json:"id"`
	Status  string     `json:"status"`
	Message string     `json:"message"`
}

// SaleItem addon quantities are totals across all units of the item.
type SaleItem struct {
	SaleItemID       FlexString          `json:"saleItemId"`
	Name             string              `json:"name"`
	Quantity         int                 `json:"quantity"`
	UnitPrice        decimal.Decimal     `json:"unitPrice"`
	Addons           []SaleAddon         `json:"addons"`
	ItemDiscounts    []SaleItemDiscount  `json:"itemDiscounts"`
	ItemPromotions   []SaleItemPromotion `json:"itemPromotions"`
	RefundedQuantity int                 `json:"refundedQuantity"`
}

type CompletedOrder struct {
	ID        FlexString `json:"id"`
	Status    string     `json:"status"`
	Date      time.Time  `json:"date"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Items     []SaleItem `json:"orderItems"`
}

type RefundEndpoint string

const (
	RefundEndpointFull         RefundEndpoint = "refund"
	RefundEndpointPartial      RefundEndpoint = "partial-refund"
	RefundEndpointFullToday    RefundEndpoint = "refund-today"
	RefundEndpointPartialToday RefundEndpoint = "partial-refund-today"
)

type RefundItem struct {
	SaleItemID       string          `json:"saleItemId"`
	RefundQuantity   int             `json:"refundQuantity"`
	ItemName         string          `json:"itemName"`
	OriginalQuantity int             `json:"originalQuantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
}

type RefundSubmission struct {
	ManagerUsername string       `json:"managerUsername"`
	RefundReason    string       `json:"refundReason"`
	Items           []RefundItem `json:"items"`
}

type RefundReceipt struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type InventoryItemRef struct {
	ItemID   string   `json:"itemId"`
	ItemType ItemType `json:"itemType"`
	Quantity int      `json:"quantity"`
}

type InventoryCheckRequest struct {
	Item      InventoryItemRef   `json:"item"`
	CartItems []InventoryItemRef `json:"cartItems"`
}

type InventoryCheck struct {
	CanAdd    bool     `json:"canAdd"`
	Conflicts []string `json:"conflicts"`
	Message   string   `json:"message,omitempty"`
}

type MaxQuantityResult struct {
	MaxQuantity int `json:"maxQuantity"`
}

type PINVerifyResult struct {
	ManagerUsername string `json:"managerUsername"`
}
