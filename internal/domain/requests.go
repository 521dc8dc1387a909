package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OpenCartRequest struct {
	TerminalID string `json:"terminal_id" validate:"required,max=64"`
}

type AddItemRequest struct {
	ItemID      string          `json:"item_id" validate:"required,max=128"`
	Name        string          `json:"name" validate:"required,max=200"`
	Category    string          `json:"category" validate:"max=200"`
	Type        ItemType        `json:"type" validate:"required,oneof=product merchandise"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Addons      []Addon         `json:"addons" validate:"dive"`
	MaxQuantity *int            `json:"max_quantity,omitempty" validate:"omitempty,min=0"`
}

type UpdateQuantityRequest struct {
	Delta int `json:"delta" validate:"required,min=-1000,max=1000"`
}

type SetAddonsRequest struct {
	Addons []Addon `json:"addons"`
}

type DiscountSelectionRequest struct {
	DiscountID string      `json:"discount_id" validate:"required"`
	Items      map[int]int `json:"items"`
	SelectAll  bool        `json:"select_all"`
}

type ApplyDiscountRequest struct {
	DiscountSelectionRequest
	ManagerPIN string `json:"manager_pin" validate:"required"`
}

type DiscountLineOption struct {
	LineIndex          int             `json:"line_index"`
	Eligible           bool            `json:"eligible"`
	BeatsPromotion     bool            `json:"beats_promotion"`
	SelectableQuantity int             `json:"selectable_quantity"`
	DiscountPerUnit    decimal.Decimal `json:"discount_per_unit"`
	PromotionPerUnit   decimal.Decimal `json:"promotion_per_unit"`
}

type DiscountOption struct {
	Discount Discount             `json:"discount"`
	Enabled  bool                 `json:"enabled"`
	Lines    []DiscountLineOption `json:"lines"`
}

type CheckoutRequest struct {
	OrderType      string `json:"order_type" validate:"required,max=32"`
	PaymentMethod  string `json:"payment_method" validate:"required,max=32"`
	GCashReference string `json:"gcash_reference,omitempty" validate:"max=64"`
}

type CheckoutResult struct {
	Receipt SaleReceipt `json:"receipt"`
	Sale    SaleRequest `json:"sale"`
	Totals  CartTotals  `json:"totals"`
}

type RefundKind string

const (
	RefundKindFull    RefundKind = "full"
	RefundKindPartial RefundKind = "partial"
)

type RefundRequest struct {
	Kind       RefundKind     `json:"kind" validate:"required,oneof=full partial"`
	SameDay    bool           `json:"same_day"`
	Items      map[string]int `json:"items"`
	Reason     string         `json:"reason" validate:"max=500"`
	ManagerPIN string         `json:"manager_pin"`
}

type RefundQuote struct {
	OrderID              string          `json:"order_id"`
	Kind                 RefundKind      `json:"kind"`
	Endpoint             RefundEndpoint  `json:"endpoint"`
	Items                []RefundItem    `json:"items"`
	Total                decimal.Decimal `json:"total"`
	PartialRefundOffered bool            `json:"partial_refund_offered"`
	WindowExpiresAt      *time.Time      `json:"window_expires_at,omitempty"`
}

type RefundResult struct {
	Quote           RefundQuote   `json:"quote"`
	ManagerUsername string        `json:"manager_username"`
	Receipt         RefundReceipt `json:"receipt"`
}
