package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/pricing"
	"cafepos/backend/internal/store/memory"
	"cafepos/backend/internal/upstream"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

type fakeCatalog struct {
	discounts  []domain.Discount
	promotions []domain.Promotion
	promoErr   error

	mu        sync.Mutex
	refreshes int
}

func (f *fakeCatalog) Discounts(context.Context) ([]domain.Discount, error) {
	return f.discounts, nil
}

func (f *fakeCatalog) Discount(_ context.Context, id string) (domain.Discount, error) {
	for _, d := range f.discounts {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Discount{}, fmt.Errorf("%w: %s", pricing.ErrDiscountNotFound, id)
}

func (f *fakeCatalog) Promotions(context.Context) ([]domain.Promotion, error) {
	if f.promoErr != nil {
		return nil, f.promoErr
	}
	return f.promotions, nil
}

func (f *fakeCatalog) Refresh(context.Context) (domain.CatalogSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return domain.CatalogSummary{Discounts: len(f.discounts), Promotions: len(f.promotions)}, nil
}

type fakeInventory struct {
	mu             sync.Mutex
	maxQuantity    int
	blockAdd       bool
	blockIncrease  bool
	err            error
	conflictCalls  int
	maxCalls       int
	increaseCalls  int
	lastAddRequest domain.InventoryCheckRequest
}

func (f *fakeInventory) DynamicMaxQuantity(_ context.Context, _ domain.InventoryCheckRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxCalls++
	if f.err != nil {
		return 0, f.err
	}
	return f.maxQuantity, nil
}

func (f *fakeInventory) CheckCartConflicts(_ context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflictCalls++
	f.lastAddRequest = req
	if f.err != nil {
		return domain.InventoryCheck{}, f.err
	}
	if f.blockAdd {
		return domain.InventoryCheck{CanAdd: false, Conflicts: []string{"Mocha"}}, nil
	}
	return domain.InventoryCheck{CanAdd: true, Conflicts: []string{}}, nil
}

func (f *fakeInventory) CheckQuantityIncrease(_ context.Context, _ domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increaseCalls++
	if f.err != nil {
		return domain.InventoryCheck{}, f.err
	}
	if f.blockIncrease {
		return domain.InventoryCheck{CanAdd: false, Message: "only 2 left"}, nil
	}
	return domain.InventoryCheck{CanAdd: true, Conflicts: []string{}}, nil
}

type refundCall struct {
	orderID    string
	endpoint   domain.RefundEndpoint
	submission domain.RefundSubmission
}

type fakeSales struct {
	mu      sync.Mutex
	order   domain.CompletedOrder
	saleErr error
	sales   []domain.SaleRequest
	refunds []refundCall
}

func (f *fakeSales) SubmitSale(_ context.Context, sale domain.SaleRequest) (domain.SaleReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saleErr != nil {
		return domain.SaleReceipt{}, f.saleErr
	}
	f.sales = append(f.sales, sale)
	return domain.SaleReceipt{ID: domain.FlexString(fmt.Sprint(1000 + len(f.sales))), Status: "completed"}, nil
}

func (f *fakeSales) GetOrder(_ context.Context, orderID string) (domain.CompletedOrder, error) {
	if f.order.ID.String() != orderID {
		return domain.CompletedOrder{}, &upstream.StatusError{StatusCode: 404, Method: "GET", Path: "/auth/purchase_orders/" + orderID}
	}
	return f.order, nil
}

func (f *fakeSales) SubmitRefund(_ context.Context, orderID string, endpoint domain.RefundEndpoint, submission domain.RefundSubmission) (domain.RefundReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, refundCall{orderID: orderID, endpoint: endpoint, submission: submission})
	return domain.RefundReceipt{Status: "refunded"}, nil
}

type fakePINs struct {
	mu      sync.Mutex
	manager string
	err     error
	calls   int
}

func (f *fakePINs) VerifyPIN(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.manager, nil
}

type harness struct {
	svc       *Service
	repo      *memory.Store
	catalog   *fakeCatalog
	inventory *fakeInventory
	sales     *fakeSales
	pins      *fakePINs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo: memory.New(),
		catalog: &fakeCatalog{
			discounts:  []domain.Discount{cookieDeal(), allTenPercent()},
			promotions: []domain.Promotion{latteBOGO()},
		},
		inventory: &fakeInventory{maxQuantity: 999},
		sales:     &fakeSales{},
		pins:      &fakePINs{manager: "mgr.rosa"},
	}
	h.svc = New(Dependencies{
		Repo:      h.repo,
		Catalog:   h.catalog,
		Inventory: h.inventory,
		Sales:     h.sales,
		PINs:      h.pins,
		Now:       func() time.Time { return testNow },
	})
	return h
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "ana", Role: auth.RoleCashier})
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "mgr.rosa", Role: auth.RoleManager})
}

func latteBOGO() domain.Promotion {
	return domain.Promotion{
		ID: "promo-latte", Name: "Latte 2+1", Type: domain.PromotionBOGO,
		Scope: domain.ScopeSpecificProduct, ScopeNames: []string{"Latte"},
		BuyQuantity: 2, GetQuantity: 1, Value: dec("100"), ValueType: domain.ValuePercentage, Priority: 3,
	}
}

func cookieDeal() domain.Discount {
	return domain.Discount{
		ID: "d-cookie", Name: "Cookie 20", Type: domain.ValueFixed, Value: dec("20"),
		Scope: domain.ScopeSpecificProduct, ApplicableNames: []string{"Cookie"},
	}
}

func allTenPercent() domain.Discount {
	return domain.Discount{ID: "d-10", Name: "All 10%", Type: domain.ValuePercentage, Value: dec("10"), Scope: domain.ScopeAll}
}

func latte() domain.AddItemRequest {
	return domain.AddItemRequest{ItemID: "p-1", Name: "Latte", Category: "Coffee", Type: domain.ItemTypeProduct, UnitPrice: dec("100")}
}

func cookie() domain.AddItemRequest {
	return domain.AddItemRequest{ItemID: "p-2", Name: "Cookie", Category: "Pastry", Type: domain.ItemTypeProduct, UnitPrice: dec("50")}
}

func (h *harness) openCart(t *testing.T, items ...domain.AddItemRequest) domain.CartView {
	t.Helper()
	ctx := cashierCtx()
	view, err := h.svc.OpenCart(ctx, domain.OpenCartRequest{TerminalID: "till-1"})
	require.NoError(t, err)
	for _, item := range items {
		view, err = h.svc.AddItem(ctx, view.ID, item)
		require.NoError(t, err)
	}
	return view
}

func TestOpenCartRecordsCashier(t *testing.T) {
	h := newHarness(t)

	view := h.openCart(t)
	assert.Equal(t, "ana", view.Cashier)
	assert.Equal(t, "till-1", view.TerminalID)
	assert.Empty(t, view.Lines)
	assertDecimal(t, "0", view.Totals.Total)

	_, err := h.svc.OpenCart(cashierCtx(), domain.OpenCartRequest{TerminalID: "  "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddItemsResolvesPromotion(t *testing.T) {
	h := newHarness(t)

	view := h.openCart(t, latte(), latte(), latte())

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	require.NotNil(t, view.Lines[0].MaxQuantity)
	assert.Equal(t, 999, *view.Lines[0].MaxQuantity)
	require.NotNil(t, view.AutoPromotion)
	assertDecimal(t, "100", view.Totals.PromotionTotal)
	assertDecimal(t, "200", view.Totals.Total)

	// the third add asks about quantity 3 with two already in the cart
	assert.Equal(t, 3, h.inventory.lastAddRequest.Item.Quantity)
	require.Len(t, h.inventory.lastAddRequest.CartItems, 1)
	assert.Equal(t, 2, h.inventory.lastAddRequest.CartItems[0].Quantity)
}

func TestAddItemRejectedOnInventoryConflict(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t)
	h.inventory.blockAdd = true

	_, err := h.svc.AddItem(cashierCtx(), view.ID, latte())
	require.ErrorIs(t, err, ErrInventoryConflict)
	assert.Contains(t, err.Error(), "Mocha")
	assert.Equal(t, 0, h.inventory.maxCalls)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, current.Lines)
}

func TestAddItemBoundedByDynamicMaxQuantity(t *testing.T) {
	h := newHarness(t)
	h.inventory.maxQuantity = 1
	view := h.openCart(t, cookie())

	_, err := h.svc.AddItem(cashierCtx(), view.ID, cookie())
	require.ErrorIs(t, err, pricing.ErrMaxQuantityReached)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Lines[0].Quantity)
}

func TestAddItemInventoryFailure(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t)
	h.inventory.err = errors.New("connection refused")

	_, err := h.svc.AddItem(cashierCtx(), view.ID, latte())
	require.ErrorIs(t, err, ErrCollaborator)

	// wrapped in the permissive checker a failing lookup no longer blocks
	h.svc.inventory = upstream.NewPermissiveInventory(h.inventory, nil)
	added, err := h.svc.AddItem(cashierCtx(), view.ID, latte())
	require.NoError(t, err)
	require.Len(t, added.Lines, 1)
	assert.Equal(t, upstream.FallbackMaxQuantity, *added.Lines[0].MaxQuantity)
}

func TestUpdateQuantity(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte())

	view, err := h.svc.UpdateQuantity(cashierCtx(), view.ID, 0, domain.UpdateQuantityRequest{Delta: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assertDecimal(t, "100", view.Totals.PromotionTotal)

	h.inventory.blockIncrease = true
	_, err = h.svc.UpdateQuantity(cashierCtx(), view.ID, 0, domain.UpdateQuantityRequest{Delta: 1})
	require.ErrorIs(t, err, ErrInventoryConflict)
	assert.Contains(t, err.Error(), "only 2 left")
	assert.Equal(t, 2, h.inventory.increaseCalls)

	view, err = h.svc.UpdateQuantity(cashierCtx(), view.ID, 0, domain.UpdateQuantityRequest{Delta: -3})
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Nil(t, view.AutoPromotion)
	assert.Equal(t, 2, h.inventory.increaseCalls)

	_, err = h.svc.UpdateQuantity(cashierCtx(), view.ID, 0, domain.UpdateQuantityRequest{Delta: 1})
	require.ErrorIs(t, err, pricing.ErrLineNotFound)
}

func TestApplyDiscountClearsPromotionUntilNextMutation(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), latte(), latte(), cookie(), cookie())
	require.NotNil(t, view.AutoPromotion)

	view, err := h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-cookie", Items: map[int]int{1: 2}},
		ManagerPIN:               "2580",
	})
	require.NoError(t, err)

	assert.Nil(t, view.AutoPromotion)
	require.Len(t, view.AppliedDiscounts, 1)
	assertDecimal(t, "20", view.Totals.DiscountTotal)
	assertDecimal(t, "380", view.Totals.Total)
	assert.Equal(t, 1, h.pins.calls)

	view, err = h.svc.AddItem(cashierCtx(), view.ID, cookie())
	require.NoError(t, err)
	require.NotNil(t, view.AutoPromotion)
	assertDecimal(t, "100", view.Totals.PromotionTotal)

	logs, err := h.svc.ListAuditLogs(managerCtx(), "till-1", "", 0)
	require.NoError(t, err)
	var detail string
	for _, entry := range logs {
		if entry.Action == "discount_apply" {
			detail = entry.Detail
		}
	}
	assert.Contains(t, detail, "manager=mgr.rosa")
}

func TestApplyDiscountInvalidPINLeavesCart(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), latte(), latte(), cookie())
	h.pins.err = fmt.Errorf("%w: rejected", auth.ErrInvalidPIN)

	_, err := h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-cookie", SelectAll: true},
		ManagerPIN:               "0000",
	})
	require.ErrorIs(t, err, auth.ErrInvalidPIN)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, current.AppliedDiscounts)
	assert.NotNil(t, current.AutoPromotion)
}

func TestApplyDiscountChecksSelectionBeforePIN(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), latte(), latte(), cookie())

	_, err := h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-cookie", Items: map[int]int{1: 5}},
		ManagerPIN:               "2580",
	})
	require.ErrorIs(t, err, pricing.ErrSelectionExceedsAvail)

	_, err = h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-cookie", Items: map[int]int{1: 1}},
		ManagerPIN:               "12",
	})
	require.ErrorIs(t, err, auth.ErrPINTooShort)

	_, err = h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-missing", SelectAll: true},
		ManagerPIN:               "2580",
	})
	require.ErrorIs(t, err, pricing.ErrDiscountNotFound)

	assert.Equal(t, 0, h.pins.calls)
}

func TestDiscountNotOfferedWhenPromotionIsBetter(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), latte(), latte())

	options, err := h.svc.DiscountOptions(cashierCtx(), view.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	for _, option := range options {
		assert.False(t, option.Enabled, option.Discount.ID)
	}

	_, err = h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
		DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-10", SelectAll: true},
		ManagerPIN:               "2580",
	})
	require.ErrorIs(t, err, pricing.ErrDiscountNotApplicable)
	assert.Equal(t, 0, h.pins.calls)
}

func TestPreviewDiscountClampsAndDoesNotSave(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, cookie(), cookie())

	preview, err := h.svc.PreviewDiscount(cashierCtx(), view.ID, domain.DiscountSelectionRequest{DiscountID: "d-10", Items: map[int]int{0: 9}})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 2}, preview.SelectedItemsQty)
	assertDecimal(t, "10", preview.TotalAmount)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, current.AppliedDiscounts)
}

func TestRemoveDiscounts(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, cookie(), cookie())
	for i := 0; i < 2; i++ {
		var err error
		view, err = h.svc.ApplyDiscount(cashierCtx(), view.ID, domain.ApplyDiscountRequest{
			DiscountSelectionRequest: domain.DiscountSelectionRequest{DiscountID: "d-10", Items: map[int]int{0: 1}},
			ManagerPIN:               "2580",
		})
		require.NoError(t, err)
	}
	require.Len(t, view.AppliedDiscounts, 2)

	view, err := h.svc.RemoveDiscount(cashierCtx(), view.ID, 0)
	require.NoError(t, err)
	assert.Len(t, view.AppliedDiscounts, 1)

	_, err = h.svc.RemoveDiscount(cashierCtx(), view.ID, 4)
	require.ErrorIs(t, err, pricing.ErrDiscountNotFound)

	view, err = h.svc.RemoveAllDiscounts(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, view.AppliedDiscounts)
	assertDecimal(t, "100", view.Totals.Total)
}

func TestCheckoutFailureLeavesCartUnchanged(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), cookie())
	h.sales.saleErr = &upstream.StatusError{StatusCode: 503, Method: "POST", Path: "/auth/sales/"}

	_, err := h.svc.Checkout(cashierCtx(), view.ID, domain.CheckoutRequest{OrderType: "dine-in", PaymentMethod: "cash"})
	require.ErrorIs(t, err, ErrCollaborator)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Len(t, current.Lines, 2)
}

func TestCheckoutClearsCart(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte(), latte(), latte(), cookie())

	_, err := h.svc.Checkout(cashierCtx(), view.ID, domain.CheckoutRequest{OrderType: "take-out", PaymentMethod: "gcash"})
	require.ErrorIs(t, err, pricing.ErrGCashReferenceRequired)
	assert.Empty(t, h.sales.sales)

	result, err := h.svc.Checkout(cashierCtx(), view.ID, domain.CheckoutRequest{OrderType: "take-out", PaymentMethod: "gcash", GCashReference: "REF-77"})
	require.NoError(t, err)

	assert.Equal(t, "1001", result.Receipt.ID.String())
	assertDecimal(t, "250", result.Totals.Total)
	require.Len(t, h.sales.sales, 1)
	assert.Equal(t, "REF-77", h.sales.sales[0].GCashReference)
	assertDecimal(t, "100", h.sales.sales[0].PromotionalDiscountAmount)

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, current.Lines)
	assert.Nil(t, current.AutoPromotion)
}

func TestCloseAndClearCart(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t, latte())

	cleared, err := h.svc.ClearCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Lines)

	require.NoError(t, h.svc.CloseCart(cashierCtx(), view.ID))
	_, err = h.svc.GetCart(cashierCtx(), view.ID)
	require.Error(t, err)
}

func refundableOrder(completed time.Time) domain.CompletedOrder {
	return domain.CompletedOrder{
		ID:     "1001",
		Status: "completed",
		Date:   completed,
		Items: []domain.SaleItem{{
			SaleItemID:    "si-1",
			Name:          "Latte",
			Quantity:      4,
			UnitPrice:     dec("50"),
			ItemDiscounts: []domain.SaleItemDiscount{{DiscountName: "Senior", QuantityDiscounted: 4, DiscountAmount: dec("40")}},
		}},
	}
}

func TestRefundAfterWindowMakesNoCalls(t *testing.T) {
	h := newHarness(t)
	h.sales.order = refundableOrder(testNow.Add(-31 * time.Minute))

	_, err := h.svc.Refund(managerCtx(), "1001", domain.RefundRequest{
		Kind:       domain.RefundKindPartial,
		Items:      map[string]int{"si-1": 2},
		Reason:     "cold drink",
		ManagerPIN: "2580",
	})
	require.ErrorIs(t, err, pricing.ErrRefundWindowExpired)
	assert.Equal(t, 0, h.pins.calls)
	assert.Empty(t, h.sales.refunds)
}

func TestRefundSubmitsWithVerifiedManager(t *testing.T) {
	h := newHarness(t)
	h.sales.order = refundableOrder(testNow.Add(-10 * time.Minute))

	result, err := h.svc.Refund(managerCtx(), "1001", domain.RefundRequest{
		Kind:       domain.RefundKindPartial,
		Items:      map[string]int{"si-1": 2},
		Reason:     "cold drink",
		ManagerPIN: "2580",
	})
	require.NoError(t, err)

	assert.Equal(t, "mgr.rosa", result.ManagerUsername)
	assertDecimal(t, "80", result.Quote.Total)
	require.Len(t, h.sales.refunds, 1)
	call := h.sales.refunds[0]
	assert.Equal(t, domain.RefundEndpointPartial, call.endpoint)
	assert.Equal(t, "mgr.rosa", call.submission.ManagerUsername)
	require.Len(t, call.submission.Items, 1)
	assertDecimal(t, "40", call.submission.Items[0].UnitPrice)
}

func TestRefundRejectionsStopBeforeSubmission(t *testing.T) {
	h := newHarness(t)
	h.sales.order = refundableOrder(testNow.Add(-10 * time.Minute))

	_, err := h.svc.Refund(managerCtx(), "1001", domain.RefundRequest{Kind: domain.RefundKindPartial, Items: map[string]int{"si-1": 5}, Reason: "x", ManagerPIN: "2580"})
	require.ErrorIs(t, err, pricing.ErrRefundExceedsAvailable)
	_, err = h.svc.Refund(managerCtx(), "1001", domain.RefundRequest{Kind: domain.RefundKindFull, ManagerPIN: "2580"})
	require.ErrorIs(t, err, pricing.ErrRefundReasonRequired)
	assert.Equal(t, 0, h.pins.calls)

	h.pins.err = auth.ErrInvalidPIN
	_, err = h.svc.Refund(managerCtx(), "1001", domain.RefundRequest{Kind: domain.RefundKindFull, Reason: "x", ManagerPIN: "9999"})
	require.ErrorIs(t, err, auth.ErrInvalidPIN)
	assert.Empty(t, h.sales.refunds)

	_, err = h.svc.Refund(managerCtx(), "2002", domain.RefundRequest{Kind: domain.RefundKindFull, Reason: "x", ManagerPIN: "2580"})
	require.ErrorIs(t, err, upstream.ErrNotFound)
}

func TestPINAttemptsOnlySpentOnVerification(t *testing.T) {
	h := newHarness(t)
	h.svc.pinLimiter = auth.NewAttemptLimiter(1, time.Hour)
	req := domain.RefundRequest{Kind: domain.RefundKindPartial, Items: map[string]int{"si-1": 2}, Reason: "cold drink", ManagerPIN: "2580"}

	h.sales.order = refundableOrder(testNow.Add(-31 * time.Minute))
	for i := 0; i < 3; i++ {
		_, err := h.svc.Refund(managerCtx(), "1001", req)
		require.ErrorIs(t, err, pricing.ErrRefundWindowExpired)
	}

	h.sales.order = refundableOrder(testNow.Add(-10 * time.Minute))
	_, err := h.svc.Refund(managerCtx(), "1001", req)
	require.NoError(t, err)

	h.pins.err = auth.ErrInvalidPIN
	_, err = h.svc.Refund(managerCtx(), "1001", req)
	require.ErrorIs(t, err, auth.ErrInvalidPIN)
	_, err = h.svc.Refund(managerCtx(), "1001", req)
	require.ErrorIs(t, err, auth.ErrTooManyAttempts)
	assert.Equal(t, 2, h.pins.calls)
}

func TestQuoteRefundNeedsNoReasonOrPIN(t *testing.T) {
	h := newHarness(t)
	h.sales.order = refundableOrder(testNow.Add(-10 * time.Minute))

	quote, err := h.svc.QuoteRefund(cashierCtx(), "1001", domain.RefundRequest{})
	require.NoError(t, err)

	assert.Equal(t, domain.RefundKindFull, quote.Kind)
	assert.Equal(t, domain.RefundEndpointFull, quote.Endpoint)
	assertDecimal(t, "160", quote.Total)
	assert.True(t, quote.PartialRefundOffered)
	require.NotNil(t, quote.WindowExpiresAt)
	assert.Equal(t, testNow.Add(20*time.Minute), *quote.WindowExpiresAt)
	assert.Equal(t, 0, h.pins.calls)
}

func TestListAuditLogs(t *testing.T) {
	h := newHarness(t)
	h.openCart(t, latte())

	_, err := h.svc.ListAuditLogs(cashierCtx(), "", "", 0)
	require.ErrorIs(t, err, ErrForbidden)

	logs, err := h.svc.ListAuditLogs(managerCtx(), "till-1", "", 0)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, entry := range logs {
		actions = append(actions, entry.Action)
		assert.Equal(t, "ana", entry.ActorUsername)
	}
	assert.ElementsMatch(t, []string{"cart_open", "cart_add_item"}, actions)

	logs, err = h.svc.ListAuditLogs(managerCtx(), "", "2026-03-13", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = h.svc.ListAuditLogs(managerCtx(), "", "14/03/2026", 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefreshCatalogRequiresManager(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.RefreshCatalog(cashierCtx())
	require.ErrorIs(t, err, ErrForbidden)

	summary, err := h.svc.RefreshCatalog(managerCtx())
	require.NoError(t, err)
	assert.Equal(t, domain.CatalogSummary{Discounts: 2, Promotions: 1}, summary)
	assert.Equal(t, 1, h.catalog.refreshes)
}

func TestMutationsSurvivePromotionOutage(t *testing.T) {
	h := newHarness(t)
	h.catalog.promoErr = errors.New("promotions service down")

	view := h.openCart(t, latte(), latte(), latte())
	assert.Nil(t, view.AutoPromotion)
	assertDecimal(t, "300", view.Totals.Total)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	h := newHarness(t)
	view := h.openCart(t)

	const adds = 20
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AddItem(cashierCtx(), view.ID, cookie())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	current, err := h.svc.GetCart(cashierCtx(), view.ID)
	require.NoError(t, err)
	require.Len(t, current.Lines, 1)
	assert.Equal(t, adds, current.Lines[0].Quantity)
	assert.Equal(t, 0, h.svc.locks.size())
}
