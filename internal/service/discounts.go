package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/pricing"
)

// DiscountOptions lists every active discount with its standing against the
// cart: whether it can be offered and how many units each line can give it.
func (s *Service) DiscountOptions(ctx context.Context, cartID string) ([]domain.DiscountOption, error) {
	session, err := s.repo.GetCart(ctx, strings.TrimSpace(cartID))
	if err != nil {
		return nil, err
	}
	discounts, err := s.catalog.Discounts(ctx)
	if err != nil {
		return nil, collaboratorError("list discounts", err)
	}

	cart := pricing.FromState(session.State)
	options := make([]domain.DiscountOption, 0, len(discounts))
	for _, discount := range discounts {
		options = append(options, cart.DiscountOption(discount))
	}
	return options, nil
}

// PreviewDiscount prices a selection without touching the cart. Requested
// quantities are clamped to what each line can give.
func (s *Service) PreviewDiscount(ctx context.Context, cartID string, req domain.DiscountSelectionRequest) (domain.AppliedDiscount, error) {
	session, err := s.repo.GetCart(ctx, strings.TrimSpace(cartID))
	if err != nil {
		return domain.AppliedDiscount{}, err
	}
	discount, err := s.lookupDiscount(ctx, req.DiscountID)
	if err != nil {
		return domain.AppliedDiscount{}, err
	}

	selection := pricing.FromState(session.State).NewSelection(discount)
	if req.SelectAll {
		selection.SelectAll()
	} else {
		for _, idx := range sortedIndices(req.Items) {
			selection.SelectItems(idx, req.Items[idx])
		}
	}
	return selection.Allocation()
}

// ApplyDiscount validates the selection, checks the manager PIN and commits
// the allocation. The PIN is only verified once the selection is known to be
// valid, so a bad selection never costs a verify call.
func (s *Service) ApplyDiscount(ctx context.Context, cartID string, req domain.ApplyDiscountRequest) (domain.CartView, error) {
	discount, err := s.lookupDiscount(ctx, req.DiscountID)
	if err != nil {
		return domain.CartView{}, err
	}

	var (
		applied domain.AppliedDiscount
		manager string
	)
	view, err := s.mutate(ctx, cartID, "apply_discount", false, func(ctx context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		if !cart.IsDiscountEnabled(discount) {
			return fmt.Errorf("%w: %s", pricing.ErrDiscountNotApplicable, discount.Name)
		}

		selected, err := resolveSelection(cart, discount, req.DiscountSelectionRequest)
		if err != nil {
			return err
		}
		applied, err = pricing.ComputeAllocation(cart.Lines(), discount, selected)
		if err != nil {
			return err
		}

		manager, err = s.verifyManagerPIN(ctx, req.ManagerPIN)
		if err != nil {
			return err
		}
		return cart.ApplyDiscount(applied)
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.metrics.DiscountApplied()
	s.logAudit(ctx, view.TerminalID, "discount_apply", "cart", view.ID,
		fmt.Sprintf("discount=%s,amount=%s,manager=%s", discount.ID, applied.TotalAmount.StringFixed(2), manager))
	return view, nil
}

func (s *Service) RemoveDiscount(ctx context.Context, cartID string, index int) (domain.CartView, error) {
	var removed domain.AppliedDiscount
	view, err := s.mutate(ctx, cartID, "remove_discount", false, func(_ context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		var err error
		removed, err = cart.RemoveDiscount(index)
		return err
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, view.TerminalID, "discount_remove", "cart", view.ID, fmt.Sprintf("discount=%s", removed.Discount.ID))
	return view, nil
}

func (s *Service) RemoveAllDiscounts(ctx context.Context, cartID string) (domain.CartView, error) {
	removed := 0
	view, err := s.mutate(ctx, cartID, "remove_all_discounts", false, func(_ context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		removed = cart.RemoveAllDiscounts()
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}

	if removed > 0 {
		s.logAudit(ctx, view.TerminalID, "discount_remove_all", "cart", view.ID, fmt.Sprintf("count=%d", removed))
	}
	return view, nil
}

func (s *Service) lookupDiscount(ctx context.Context, id string) (domain.Discount, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Discount{}, fmt.Errorf("%w: discount id is required", ErrInvalidInput)
	}
	discount, err := s.catalog.Discount(ctx, id)
	if err != nil {
		if errors.Is(err, pricing.ErrDiscountNotFound) {
			return domain.Discount{}, err
		}
		return domain.Discount{}, collaboratorError("load discount", err)
	}
	return discount, nil
}

// verifyManagerPIN returns the username of the manager the PIN belongs to.
// Only a PIN that reaches the verifier spends an attempt of the signed-in
// user; a verified PIN clears that user's count.
func (s *Service) verifyManagerPIN(ctx context.Context, pin string) (string, error) {
	if err := auth.ValidatePINInput(pin); err != nil {
		return "", err
	}
	actor, _ := ActorFromContext(ctx)
	key := "pin:" + actor.Username
	if err := s.pinLimiter.Allow(key); err != nil {
		return "", err
	}
	manager, err := s.pins.VerifyPIN(ctx, pin)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPIN) {
			return "", err
		}
		return "", collaboratorError("verify pin", err)
	}
	s.pinLimiter.Reset(key)
	return manager, nil
}

// resolveSelection turns a request into per-line quantities. Explicit
// quantities must fit what each line can give; nothing is clamped.
func resolveSelection(cart *pricing.Cart, discount domain.Discount, req domain.DiscountSelectionRequest) (map[int]int, error) {
	if req.SelectAll {
		selection := cart.NewSelection(discount)
		selection.SelectAll()
		return selection.Selected(), nil
	}

	selected := make(map[int]int, len(req.Items))
	for _, idx := range sortedIndices(req.Items) {
		n := req.Items[idx]
		if n == 0 {
			continue
		}
		if _, ok := cart.Line(idx); !ok {
			return nil, fmt.Errorf("%w: line %d", pricing.ErrLineNotFound, idx)
		}
		if limit := cart.SelectableQuantity(idx, discount); n < 0 || n > limit {
			return nil, fmt.Errorf("%w: line %d can take %d unit(s)", pricing.ErrSelectionExceedsAvail, idx, limit)
		}
		selected[idx] = n
	}
	if len(selected) == 0 {
		return nil, pricing.ErrEmptySelection
	}
	return selected, nil
}

func sortedIndices(items map[int]int) []int {
	indices := make([]int, 0, len(items))
	for idx := range items {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
