package upstream

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/logger"
	"cafepos/backend/internal/metrics"
)

// FallbackMaxQuantity is the ceiling used when the Inventory service cannot
// answer a max-quantity lookup.
const FallbackMaxQuantity = 999

const (
	dynamicMaxPath       = "/api/inventory/dynamic-max-quantity"
	cartConflictsPath    = "/api/inventory/check-cart-conflicts"
	quantityIncreasePath = "/api/inventory/check-quantity-increase"
)

// InventoryChecker answers stock questions for a cart about to change.
type InventoryChecker interface {
	DynamicMaxQuantity(ctx context.Context, req domain.InventoryCheckRequest) (int, error)
	CheckCartConflicts(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error)
	CheckQuantityIncrease(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error)
}

type InventoryClient struct {
	client *Client
}

func NewInventoryClient(client *Client) *InventoryClient {
	return &InventoryClient{client: client}
}

func (c *InventoryClient) DynamicMaxQuantity(ctx context.Context, req domain.InventoryCheckRequest) (int, error) {
	var out domain.MaxQuantityResult
	if err := c.client.do(ctx, http.MethodPost, dynamicMaxPath, req, &out); err != nil {
		return 0, err
	}
	return out.MaxQuantity, nil
}

func (c *InventoryClient) CheckCartConflicts(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	var out domain.InventoryCheck
	err := c.client.do(ctx, http.MethodPost, cartConflictsPath, req, &out)
	return out, err
}

func (c *InventoryClient) CheckQuantityIncrease(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	var out domain.InventoryCheck
	err := c.client.do(ctx, http.MethodPost, quantityIncreasePath, req, &out)
	return out, err
}

// PermissiveInventory wraps a checker so that lookup failures never block a
// sale: conflicts degrade to "can add" and max quantity to
// FallbackMaxQuantity.
type PermissiveInventory struct {
	next    InventoryChecker
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewPermissiveInventory(next InventoryChecker, m *metrics.Metrics) *PermissiveInventory {
	return &PermissiveInventory{next: next, metrics: m, log: logger.Component("inventory")}
}

func (p *PermissiveInventory) DynamicMaxQuantity(ctx context.Context, req domain.InventoryCheckRequest) (int, error) {
	ceiling, err := p.next.DynamicMaxQuantity(ctx, req)
	if err != nil {
		p.fallback("dynamic_max_quantity", req, err)
		return FallbackMaxQuantity, nil
	}
	return ceiling, nil
}

func (p *PermissiveInventory) CheckCartConflicts(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	check, err := p.next.CheckCartConflicts(ctx, req)
	if err != nil {
		p.fallback("check_cart_conflicts", req, err)
		return allowAll(), nil
	}
	return check, nil
}

func (p *PermissiveInventory) CheckQuantityIncrease(ctx context.Context, req domain.InventoryCheckRequest) (domain.InventoryCheck, error) {
	check, err := p.next.CheckQuantityIncrease(ctx, req)
	if err != nil {
		p.fallback("check_quantity_increase", req, err)
		return allowAll(), nil
	}
	return check, nil
}

func (p *PermissiveInventory) fallback(operation string, req domain.InventoryCheckRequest, err error) {
	p.metrics.UpstreamFallback(operation)
	p.log.Warn().
		Err(err).
		Str("operation", operation).
		Str("item_id", req.Item.ItemID).
		Msg("inventory lookup failed, allowing")
}

func allowAll() domain.InventoryCheck {
	return domain.InventoryCheck{CanAdd: true, Conflicts: []string{}}
}
