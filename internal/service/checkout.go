package service

import (
	"context"
	"fmt"
	"strings"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/pricing"
)

// Checkout submits the cart as a sale. A failed submission leaves the cart
// exactly as it was; a successful one empties it.
func (s *Service) Checkout(ctx context.Context, cartID string, req domain.CheckoutRequest) (domain.CheckoutResult, error) {
	cartID = strings.TrimSpace(cartID)
	unlock := s.locks.lock(cartID)
	defer unlock()

	session, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		s.metrics.Checkout(metrics.OutcomeRejected)
		return domain.CheckoutResult{}, err
	}

	cart := pricing.FromState(session.State)
	sale, err := cart.BuildSale(pricing.SaleOptions{
		OrderType:      req.OrderType,
		PaymentMethod:  req.PaymentMethod,
		GCashReference: req.GCashReference,
	})
	if err != nil {
		s.metrics.Checkout(metrics.OutcomeRejected)
		return domain.CheckoutResult{}, err
	}
	totals := cart.Totals()

	receipt, err := s.sales.SubmitSale(ctx, sale)
	if err != nil {
		s.metrics.Checkout(metrics.OutcomeFailed)
		return domain.CheckoutResult{}, collaboratorError("submit sale", err)
	}
	s.metrics.Checkout(metrics.OutcomeOK)

	cart.Clear()
	session.State = cart.State()
	if _, err := s.repo.SaveCart(ctx, *session); err != nil {
		// The sale is already recorded upstream; reporting failure here would
		// invite a second submission.
		s.log.Error().Err(err).Str("cart_id", cartID).Str("receipt_id", receipt.ID.String()).Msg("failed to clear cart after checkout")
	}

	s.logAudit(ctx, session.TerminalID, "cart_checkout", "cart", cartID,
		fmt.Sprintf("receipt=%s,total=%s,payment=%s", receipt.ID, totals.Total.StringFixed(2), sale.PaymentMethod))
	return domain.CheckoutResult{Receipt: receipt, Sale: sale, Totals: totals}, nil
}
