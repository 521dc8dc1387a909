package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypeProduct     ItemType = "product"
	ItemTypeMerchandise ItemType = "merchandise"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeProduct || t == ItemTypeMerchandise
}

type Scope string

const (
	ScopeAll             Scope = "all"
	ScopeCategory        Scope = "category"
	ScopeSpecificProduct Scope = "specific-product"
)

type ValueType string

const (
	ValuePercentage ValueType = "percentage"
	ValueFixed      ValueType = "fixed"
)

type PromotionType string

const (
	PromotionBOGO       PromotionType = "bogo"
	PromotionPercentage PromotionType = "percentage"
	PromotionFixed      PromotionType = "fixed"
)

// Addon quantities on a cart line are per unit of the line.
type Addon struct {
	AddonID   string          `json:"addon_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type CartLine struct {
	LineID      string          `json:"line_id"`
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Type        ItemType        `json:"type"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Addons      []Addon         `json:"addons"`
	MaxQuantity *int            `json:"max_quantity,omitempty"`
}

type Discount struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Type            ValueType       `json:"type"`
	Value           decimal.Decimal `json:"value"`
	MinSpend        decimal.Decimal `json:"min_spend"`
	Scope           Scope           `json:"application_scope"`
	ApplicableNames []string        `json:"applicable_names"`
}

type ItemDiscount struct {
	LineIndex int             `json:"line_index"`
	LineID    string          `json:"line_id"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"discount_amount"`
}

// AppliedDiscount keys SelectedItemsQty by cart line index.
type AppliedDiscount struct {
	Discount         Discount        `json:"discount"`
	SelectedItemsQty map[int]int     `json:"selected_items_qty"`
	ItemDiscounts    []ItemDiscount  `json:"item_discounts"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

type Promotion struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        PromotionType   `json:"promotion_type"`
	Scope       Scope           `json:"application_scope"`
	ScopeNames  []string        `json:"scope_names"`
	BuyQuantity int             `json:"buy_quantity"`
	GetQuantity int             `json:"get_quantity"`
	Value       decimal.Decimal `json:"discount_value"`
	ValueType   ValueType       `json:"discount_value_type"`
	Priority    int             `json:"priority"`
}

type ItemPromotion struct {
	LineIndex     int             `json:"line_index"`
	LineID        string          `json:"line_id"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"promotion_amount"`
	PromotionID   string          `json:"promotion_id"`
	PromotionName string          `json:"promotion_name"`
	Priority      int             `json:"priority"`
}

type AutoPromotion struct {
	ItemPromotions   []ItemPromotion `json:"item_promotions"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	Name             string          `json:"name"`
	IsMultiPromotion bool            `json:"is_multi_promotion"`
}

type CartState struct {
	Lines            []CartLine        `json:"lines"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	AutoPromotion    *AutoPromotion    `json:"auto_promotion,omitempty"`
}

type CartSession struct {
	ID         string    `json:"id"`
	TerminalID string    `json:"terminal_id"`
	Cashier    string    `json:"cashier"`
	State      CartState `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CartTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	AddonTotal     decimal.Decimal `json:"addon_total"`
	PromotionTotal decimal.Decimal `json:"promotion_total"`
	DiscountTotal  decimal.Decimal `json:"discount_total"`
	Total          decimal.Decimal `json:"total"`
}

type CartView struct {
	ID               string            `json:"id"`
	TerminalID       string            `json:"terminal_id"`
	Cashier          string            `json:"cashier"`
	Lines            []CartLine        `json:"lines"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	AutoPromotion    *AutoPromotion    `json:"auto_promotion"`
	Totals           CartTotals        `json:"totals"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type Actor struct {
	Username string
	Role     string
}

type AuditLog struct {
	ID            string    `json:"id"`
	TerminalID    string    `json:"terminal_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
