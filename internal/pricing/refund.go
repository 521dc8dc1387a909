package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cafepos/backend/internal/domain"
)

// RefundWindow is how long after completion an order may be refunded from
// the order panel. Same-day refunds are not bound by it.
const RefundWindow = 30 * time.Minute

// UnitNetValue is what one original unit of a sale item was paid net of its
// recorded discounts and promotions. Recorded totals are spread evenly over
// the original quantity, matching how allocation split them.
func UnitNetValue(item domain.SaleItem) decimal.Decimal {
	if item.Quantity <= 0 {
		return decimal.Zero
	}
	units := qty(item.Quantity)

	addons := decimal.Zero
	for _, addon := range item.Addons {
		addons = addons.Add(addon.UnitPrice.Mul(qty(addon.Quantity)))
	}
	discounts := decimal.Zero
	for _, d := range item.ItemDiscounts {
		discounts = discounts.Add(d.DiscountAmount)
	}
	promotions := decimal.Zero
	for _, p := range item.ItemPromotions {
		promotions = promotions.Add(p.PromotionAmount)
	}

	value := item.UnitPrice.
		Add(addons.Div(units)).
		Sub(discounts.Div(units)).
		Sub(promotions.Div(units))
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func RefundableQuantity(item domain.SaleItem) int {
	n := item.Quantity - item.RefundedQuantity
	if n < 0 {
		return 0
	}
	return n
}

// FullRefundTotal covers every unit not refunded yet.
func FullRefundTotal(order domain.CompletedOrder) decimal.Decimal {
	total := decimal.Zero
	for _, item := range order.Items {
		total = total.Add(UnitNetValue(item).Mul(qty(RefundableQuantity(item))))
	}
	return money(total)
}

// PartialRefundTotal prices a selection keyed by sale item id.
func PartialRefundTotal(order domain.CompletedOrder, selection map[string]int) (decimal.Decimal, error) {
	total := decimal.Zero
	picked := 0
	for id, n := range selection {
		if n < 0 {
			return decimal.Zero, fmt.Errorf("%w: negative quantity for %s", ErrRefundExceedsAvailable, id)
		}
		if n == 0 {
			continue
		}
		item, ok := findSaleItem(order, id)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrSaleItemNotFound, id)
		}
		if n > RefundableQuantity(item) {
			return decimal.Zero, fmt.Errorf("%w: %s has %d refundable unit(s)", ErrRefundExceedsAvailable, item.Name, RefundableQuantity(item))
		}
		total = total.Add(UnitNetValue(item).Mul(qty(n)))
		picked += n
	}
	if picked == 0 {
		return decimal.Zero, ErrEmptyRefundSelection
	}
	return money(total), nil
}

// PartialRefundOffered is false for orders of a single unit, which only
// offer a full refund.
func PartialRefundOffered(order domain.CompletedOrder) bool {
	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	return units > 1
}

func completedAt(order domain.CompletedOrder) time.Time {
	if order.UpdatedAt != nil && !order.UpdatedAt.IsZero() {
		return *order.UpdatedAt
	}
	return order.Date
}

// CheckRefundWindow fails closed: an order without a completion time is
// treated as expired.
func CheckRefundWindow(order domain.CompletedOrder, now time.Time, window time.Duration) error {
	at := completedAt(order)
	if at.IsZero() {
		return fmt.Errorf("%w: order has no completion time", ErrRefundWindowExpired)
	}
	if elapsed := now.Sub(at); elapsed > window {
		return fmt.Errorf("%w: completed %s ago", ErrRefundWindowExpired, elapsed.Truncate(time.Minute))
	}
	return nil
}

type RefundOptions struct {
	Kind    domain.RefundKind
	SameDay bool
	Items   map[string]int
	Reason  string
	Window  time.Duration

	// QuoteOnly prices the refund without requiring a reason.
	QuoteOnly bool
}

type RefundPlan struct {
	Endpoint        domain.RefundEndpoint
	Submission      domain.RefundSubmission
	Total           decimal.Decimal
	PartialOffered  bool
	WindowExpiresAt *time.Time
}

var closedOrderStatuses = map[string]bool{
	"refunded":  true,
	"cancelled": true,
	"canceled":  true,
	"voided":    true,
}

// PrepareRefund runs every local refund check and prices the refund. It
// performs no I/O; the manager username is filled in by the caller once the
// PIN is verified.
func PrepareRefund(order domain.CompletedOrder, opts RefundOptions, now time.Time) (RefundPlan, error) {
	if closedOrderStatuses[strings.ToLower(strings.TrimSpace(order.Status))] {
		return RefundPlan{}, fmt.Errorf("%w: status %s", ErrOrderNotRefundable, order.Status)
	}
	remaining := 0
	for _, item := range order.Items {
		remaining += RefundableQuantity(item)
	}
	if remaining == 0 {
		return RefundPlan{}, fmt.Errorf("%w: nothing left to refund", ErrOrderNotRefundable)
	}

	window := opts.Window
	if window <= 0 {
		window = RefundWindow
	}
	plan := RefundPlan{PartialOffered: PartialRefundOffered(order)}
	if !opts.SameDay {
		if err := CheckRefundWindow(order, now, window); err != nil {
			return RefundPlan{}, err
		}
		expires := completedAt(order).Add(window)
		plan.WindowExpiresAt = &expires
	}

	reason := strings.TrimSpace(opts.Reason)
	if reason == "" && !opts.QuoteOnly {
		return RefundPlan{}, ErrRefundReasonRequired
	}
	plan.Submission.RefundReason = reason

	switch opts.Kind {
	case domain.RefundKindFull, "":
		plan.Endpoint = refundEndpoint(false, opts.SameDay)
		plan.Total = FullRefundTotal(order)
		for _, item := range order.Items {
			if n := RefundableQuantity(item); n > 0 {
				plan.Submission.Items = append(plan.Submission.Items, refundItem(item, n))
			}
		}
	case domain.RefundKindPartial:
		if !plan.PartialOffered {
			return RefundPlan{}, ErrPartialRefundNotOffered
		}
		total, err := PartialRefundTotal(order, opts.Items)
		if err != nil {
			return RefundPlan{}, err
		}
		plan.Endpoint = refundEndpoint(true, opts.SameDay)
		plan.Total = total
		for _, item := range order.Items {
			if n := opts.Items[item.SaleItemID.String()]; n > 0 {
				plan.Submission.Items = append(plan.Submission.Items, refundItem(item, n))
			}
		}
	default:
		return RefundPlan{}, fmt.Errorf("%w: unknown refund kind %q", ErrEmptyRefundSelection, opts.Kind)
	}
	return plan, nil
}

func refundEndpoint(partial bool, sameDay bool) domain.RefundEndpoint {
	switch {
	case partial && sameDay:
		return domain.RefundEndpointPartialToday
	case partial:
		return domain.RefundEndpointPartial
	case sameDay:
		return domain.RefundEndpointFullToday
	default:
		return domain.RefundEndpointFull
	}
}

func refundItem(item domain.SaleItem, n int) domain.RefundItem {
	return domain.RefundItem{
		SaleItemID:       item.SaleItemID.String(),
		RefundQuantity:   n,
		ItemName:         item.Name,
		OriginalQuantity: item.Quantity,
		UnitPrice:        money(UnitNetValue(item)),
	}
}

func findSaleItem(order domain.CompletedOrder, id string) (domain.SaleItem, bool) {
	for _, item := range order.Items {
		if item.SaleItemID.String() == id {
			return item, true
		}
	}
	return domain.SaleItem{}, false
}
