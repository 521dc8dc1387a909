package service

import (
	"context"
	"fmt"
	"strings"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/pricing"
	"cafepos/backend/internal/xid"
)

type cartMutation func(ctx context.Context, session *domain.CartSession, cart *pricing.Cart) error

// mutate loads a cart under its lock, applies fn and saves the result. When
// recompute is set the automatic promotion is resolved again from scratch
// before saving. Nothing is written if fn fails.
func (s *Service) mutate(ctx context.Context, cartID string, operation string, recompute bool, fn cartMutation) (domain.CartView, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return domain.CartView{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	session, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		s.metrics.CartMutation(operation, metrics.OutcomeRejected)
		return domain.CartView{}, err
	}

	cart := pricing.FromState(session.State)
	if err := fn(ctx, session, cart); err != nil {
		s.metrics.CartMutation(operation, outcomeOf(err))
		return domain.CartView{}, err
	}
	if recompute {
		cart.Recompute(s.promotions(ctx))
		s.metrics.PromotionRecomputed()
	}

	session.State = cart.State()
	saved, err := s.repo.SaveCart(ctx, *session)
	if err != nil {
		s.metrics.CartMutation(operation, metrics.OutcomeFailed)
		return domain.CartView{}, err
	}
	s.metrics.CartMutation(operation, metrics.OutcomeOK)
	return cartView(*saved), nil
}

func cartView(session domain.CartSession) domain.CartView {
	cart := pricing.FromState(session.State)
	view := domain.CartView{
		ID:               session.ID,
		TerminalID:       session.TerminalID,
		Cashier:          session.Cashier,
		Lines:            cart.Lines(),
		AppliedDiscounts: cart.AppliedDiscounts(),
		AutoPromotion:    cart.AutoPromotion(),
		Totals:           cart.Totals(),
		UpdatedAt:        session.UpdatedAt,
	}
	if view.Lines == nil {
		view.Lines = []domain.CartLine{}
	}
	if view.AppliedDiscounts == nil {
		view.AppliedDiscounts = []domain.AppliedDiscount{}
	}
	return view
}

func (s *Service) OpenCart(ctx context.Context, req domain.OpenCartRequest) (domain.CartView, error) {
	terminalID := strings.TrimSpace(req.TerminalID)
	if terminalID == "" {
		return domain.CartView{}, fmt.Errorf("%w: terminal id is required", ErrInvalidInput)
	}

	actor, _ := ActorFromContext(ctx)
	now := s.now()
	created, err := s.repo.CreateCart(ctx, domain.CartSession{
		ID:         xid.New("cart"),
		TerminalID: terminalID,
		Cashier:    actor.Username,
		State: domain.CartState{
			Lines:            []domain.CartLine{},
			AppliedDiscounts: []domain.AppliedDiscount{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		s.metrics.CartMutation("open", metrics.OutcomeFailed)
		return domain.CartView{}, err
	}

	s.metrics.CartMutation("open", metrics.OutcomeOK)
	s.logAudit(ctx, terminalID, "cart_open", "cart", created.ID, "")
	return cartView(*created), nil
}

func (s *Service) GetCart(ctx context.Context, cartID string) (domain.CartView, error) {
	session, err := s.repo.GetCart(ctx, strings.TrimSpace(cartID))
	if err != nil {
		return domain.CartView{}, err
	}
	return cartView(*session), nil
}

// CloseCart discards the cart session without submitting a sale.
func (s *Service) CloseCart(ctx context.Context, cartID string) error {
	cartID = strings.TrimSpace(cartID)
	unlock := s.locks.lock(cartID)
	defer unlock()

	session, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		return err
	}
	s.logAudit(ctx, session.TerminalID, "cart_close", "cart", cartID, fmt.Sprintf("lines=%d", len(session.State.Lines)))
	return nil
}

// AddItem asks the Inventory service about the unit being added before the
// cart changes: a conflict rejects the add and the dynamic max quantity
// becomes the line's ceiling.
func (s *Service) AddItem(ctx context.Context, cartID string, req domain.AddItemRequest) (domain.CartView, error) {
	item := domain.CartLine{
		ItemID:      strings.TrimSpace(req.ItemID),
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Type:        req.Type,
		UnitPrice:   req.UnitPrice,
		Addons:      req.Addons,
		MaxQuantity: req.MaxQuantity,
	}

	var added domain.CartLine
	view, err := s.mutate(ctx, cartID, "add_item", true, func(ctx context.Context, session *domain.CartSession, cart *pricing.Cart) error {
		next := 1
		if idx, ok := cart.MergeTarget(item); ok {
			line, _ := cart.Line(idx)
			next = line.Quantity + 1
		}
		check := inventoryRequest(cart, item, next)

		conflicts, err := s.inventory.CheckCartConflicts(ctx, check)
		if err != nil {
			return collaboratorError("check cart conflicts", err)
		}
		if !conflicts.CanAdd {
			return inventoryConflict(item.Name, conflicts)
		}

		ceiling, err := s.inventory.DynamicMaxQuantity(ctx, check)
		if err != nil {
			return collaboratorError("dynamic max quantity", err)
		}
		if item.MaxQuantity == nil || ceiling < *item.MaxQuantity {
			item.MaxQuantity = &ceiling
		}

		idx, err := cart.AddItem(item)
		if err != nil {
			return err
		}
		added, _ = cart.Line(idx)
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, view.TerminalID, "cart_add_item", "cart", view.ID, fmt.Sprintf("item=%s,qty=%d", added.ItemID, added.Quantity))
	return view, nil
}

// UpdateQuantity applies delta to a line. Increases are cleared with the
// Inventory service first.
func (s *Service) UpdateQuantity(ctx context.Context, cartID string, index int, req domain.UpdateQuantityRequest) (domain.CartView, error) {
	view, err := s.mutate(ctx, cartID, "update_quantity", true, func(ctx context.Context, session *domain.CartSession, cart *pricing.Cart) error {
		line, ok := cart.Line(index)
		if !ok {
			return pricing.ErrLineNotFound
		}
		if req.Delta > 0 {
			if err := pricing.CheckIncrease(line, req.Delta); err != nil {
				return err
			}
			check, err := s.inventory.CheckQuantityIncrease(ctx, inventoryRequest(cart, line, line.Quantity+req.Delta))
			if err != nil {
				return collaboratorError("check quantity increase", err)
			}
			if !check.CanAdd {
				return inventoryConflict(line.Name, check)
			}
		}
		return cart.UpdateQuantity(index, req.Delta)
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, view.TerminalID, "cart_update_quantity", "cart", view.ID, fmt.Sprintf("line=%d,delta=%d", index, req.Delta))
	return view, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID string, index int) (domain.CartView, error) {
	view, err := s.mutate(ctx, cartID, "remove_item", true, func(_ context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		return cart.RemoveItem(index)
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, view.TerminalID, "cart_remove_item", "cart", view.ID, fmt.Sprintf("line=%d", index))
	return view, nil
}

func (s *Service) SetAddons(ctx context.Context, cartID string, index int, req domain.SetAddonsRequest) (domain.CartView, error) {
	return s.mutate(ctx, cartID, "set_addons", true, func(_ context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		return cart.SetAddons(index, req.Addons)
	})
}

// ClearCart empties the cart but keeps the session open.
func (s *Service) ClearCart(ctx context.Context, cartID string) (domain.CartView, error) {
	view, err := s.mutate(ctx, cartID, "clear", false, func(_ context.Context, _ *domain.CartSession, cart *pricing.Cart) error {
		cart.Clear()
		return nil
	})
	if err != nil {
		return domain.CartView{}, err
	}

	s.logAudit(ctx, view.TerminalID, "cart_clear", "cart", view.ID, "")
	return view, nil
}

func inventoryRequest(cart *pricing.Cart, item domain.CartLine, quantity int) domain.InventoryCheckRequest {
	lines := cart.Lines()
	refs := make([]domain.InventoryItemRef, 0, len(lines))
	for _, line := range lines {
		refs = append(refs, domain.InventoryItemRef{ItemID: line.ItemID, ItemType: line.Type, Quantity: line.Quantity})
	}
	return domain.InventoryCheckRequest{
		Item:      domain.InventoryItemRef{ItemID: item.ItemID, ItemType: item.Type, Quantity: quantity},
		CartItems: refs,
	}
}

func inventoryConflict(name string, check domain.InventoryCheck) error {
	reason := strings.TrimSpace(check.Message)
	if reason == "" && len(check.Conflicts) > 0 {
		reason = strings.Join(check.Conflicts, ", ")
	}
	if reason == "" {
		reason = "not enough stock"
	}
	return fmt.Errorf("%w: %s: %s", ErrInventoryConflict, name, reason)
}
