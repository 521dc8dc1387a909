package service

import (
	"context"
	"fmt"
	"strings"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/pricing"
)

// QuoteRefund prices a refund against the order as the Sales service has it
// now. No reason or PIN is needed.
func (s *Service) QuoteRefund(ctx context.Context, orderID string, req domain.RefundRequest) (domain.RefundQuote, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.RefundQuote{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	order, err := s.sales.GetOrder(ctx, orderID)
	if err != nil {
		return domain.RefundQuote{}, collaboratorError("get order", err)
	}
	plan, err := pricing.PrepareRefund(order, s.refundOptions(req, true), s.now())
	if err != nil {
		return domain.RefundQuote{}, err
	}
	return refundQuote(orderID, req.Kind, plan), nil
}

// Refund runs every local check before the manager PIN is verified and
// before the refund is submitted, so a late or oversized refund never
// reaches the Sales service.
func (s *Service) Refund(ctx context.Context, orderID string, req domain.RefundRequest) (domain.RefundResult, error) {
	kind := string(refundKind(req.Kind))
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		s.metrics.Refund(kind, metrics.OutcomeRejected)
		return domain.RefundResult{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	order, err := s.sales.GetOrder(ctx, orderID)
	if err != nil {
		s.metrics.Refund(kind, metrics.OutcomeFailed)
		return domain.RefundResult{}, collaboratorError("get order", err)
	}
	plan, err := pricing.PrepareRefund(order, s.refundOptions(req, false), s.now())
	if err != nil {
		s.metrics.Refund(kind, metrics.OutcomeRejected)
		return domain.RefundResult{}, err
	}

	manager, err := s.verifyManagerPIN(ctx, req.ManagerPIN)
	if err != nil {
		s.metrics.Refund(kind, outcomeOf(err))
		return domain.RefundResult{}, err
	}
	plan.Submission.ManagerUsername = manager

	receipt, err := s.sales.SubmitRefund(ctx, orderID, plan.Endpoint, plan.Submission)
	if err != nil {
		s.metrics.Refund(kind, metrics.OutcomeFailed)
		return domain.RefundResult{}, collaboratorError("submit refund", err)
	}
	s.metrics.Refund(kind, metrics.OutcomeOK)

	s.logAudit(ctx, "", "order_refund", "order", orderID,
		fmt.Sprintf("kind=%s,endpoint=%s,total=%s,manager=%s", kind, plan.Endpoint, plan.Total.StringFixed(2), manager))
	return domain.RefundResult{
		Quote:           refundQuote(orderID, req.Kind, plan),
		ManagerUsername: manager,
		Receipt:         receipt,
	}, nil
}

func (s *Service) refundOptions(req domain.RefundRequest, quoteOnly bool) pricing.RefundOptions {
	return pricing.RefundOptions{
		Kind:      refundKind(req.Kind),
		SameDay:   req.SameDay,
		Items:     req.Items,
		Reason:    req.Reason,
		Window:    s.refundWindow,
		QuoteOnly: quoteOnly,
	}
}

func refundKind(kind domain.RefundKind) domain.RefundKind {
	if kind == "" {
		return domain.RefundKindFull
	}
	return kind
}

func refundQuote(orderID string, kind domain.RefundKind, plan pricing.RefundPlan) domain.RefundQuote {
	items := plan.Submission.Items
	if items == nil {
		items = []domain.RefundItem{}
	}
	return domain.RefundQuote{
		OrderID:              orderID,
		Kind:                 refundKind(kind),
		Endpoint:             plan.Endpoint,
		Items:                items,
		Total:                plan.Total,
		PartialRefundOffered: plan.PartialOffered,
		WindowExpiresAt:      plan.WindowExpiresAt,
	}
}
