package pricing

import "errors"

var (
	ErrLineNotFound            = errors.New("cart line not found")
	ErrMaxQuantityReached      = errors.New("maximum quantity reached")
	ErrQuantityBelowDiscounted = errors.New("quantity cannot go below discounted quantity; remove the discount first")
	ErrInvalidAddon            = errors.New("invalid add-on")
	ErrInvalidItem             = errors.New("invalid cart item")
	ErrEmptyCart               = errors.New("cart is empty")

	ErrDiscountNotFound       = errors.New("applied discount not found")
	ErrDiscountNotApplicable  = errors.New("discount is not applicable to this cart")
	ErrEmptySelection         = errors.New("no items selected for discount")
	ErrSelectionExceedsAvail  = errors.New("selected quantity exceeds available quantity")
	ErrMinSpendNotMet         = errors.New("minimum spend not met")
	ErrGCashReferenceRequired = errors.New("gcash reference is required")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")

	ErrRefundWindowExpired     = errors.New("refund window has expired")
	ErrRefundExceedsAvailable  = errors.New("refund quantity exceeds refundable quantity")
	ErrSaleItemNotFound        = errors.New("sale item not found")
	ErrEmptyRefundSelection    = errors.New("no items selected for refund")
	ErrPartialRefundNotOffered = errors.New("partial refund is not available for single-unit orders")
	ErrOrderNotRefundable      = errors.New("order cannot be refunded")
	ErrRefundReasonRequired    = errors.New("refund reason is required")
)
