// Package service runs cart sessions for cashier terminals. It owns the
// ordering of collaborator checks around the pricing engine and records an
// audit trail for every state change.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/logger"
	"cafepos/backend/internal/metrics"
	"cafepos/backend/internal/pricing"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/upstream"
	"cafepos/backend/internal/xid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrInventoryConflict = errors.New("inventory conflict")
	ErrCollaborator      = errors.New("collaborator request failed")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Catalog serves the active discount and promotion lists.
type Catalog interface {
	Discounts(ctx context.Context) ([]domain.Discount, error)
	Discount(ctx context.Context, id string) (domain.Discount, error)
	Promotions(ctx context.Context) ([]domain.Promotion, error)
	Refresh(ctx context.Context) (domain.CatalogSummary, error)
}

// Sales finalizes sales and refunds.
type Sales interface {
	SubmitSale(ctx context.Context, sale domain.SaleRequest) (domain.SaleReceipt, error)
	GetOrder(ctx context.Context, orderID string) (domain.CompletedOrder, error)
	SubmitRefund(ctx context.Context, orderID string, endpoint domain.RefundEndpoint, submission domain.RefundSubmission) (domain.RefundReceipt, error)
}

type Dependencies struct {
	Repo      store.Repository
	Catalog   Catalog
	Inventory upstream.InventoryChecker
	Sales     Sales
	PINs      auth.PINVerifier
	Metrics   *metrics.Metrics

	// PINLimiter throttles manager PIN checks per signed-in user. Nil
	// disables throttling.
	PINLimiter *auth.AttemptLimiter

	// Now defaults to time.Now in UTC.
	Now          func() time.Time
	RefundWindow time.Duration
}

type Service struct {
	repo         store.Repository
	catalog      Catalog
	inventory    upstream.InventoryChecker
	sales        Sales
	pins         auth.PINVerifier
	pinLimiter   *auth.AttemptLimiter
	metrics      *metrics.Metrics
	now          func() time.Time
	refundWindow time.Duration
	locks        *cartLocks
	log          zerolog.Logger
}

func New(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	window := deps.RefundWindow
	if window <= 0 {
		window = pricing.RefundWindow
	}

	return &Service{
		repo:         deps.Repo,
		catalog:      deps.Catalog,
		inventory:    deps.Inventory,
		sales:        deps.Sales,
		pins:         deps.PINs,
		pinLimiter:   deps.PINLimiter,
		metrics:      deps.Metrics,
		now:          now,
		refundWindow: window,
		locks:        newCartLocks(),
		log:          logger.Component("service"),
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, terminalID string, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	// Without a date the window is the last 24 hours, up to and including now.
	to := s.now().Add(time.Second)
	from := to.Add(-24 * time.Hour)
	if strings.TrimSpace(date) != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
		}
		from = parsed.UTC()
		to = from.Add(24 * time.Hour)
	}

	return s.repo.ListAuditLogs(ctx, strings.TrimSpace(terminalID), from, to, limit)
}

// RefreshCatalog drops cached catalog lists and fetches them again.
func (s *Service) RefreshCatalog(ctx context.Context) (domain.CatalogSummary, error) {
	if err := requireManager(ctx); err != nil {
		return domain.CatalogSummary{}, err
	}

	summary, err := s.catalog.Refresh(ctx)
	if err != nil {
		return domain.CatalogSummary{}, fmt.Errorf("%w: refresh catalog: %w", ErrCollaborator, err)
	}
	s.logAudit(ctx, "", "catalog_refresh", "catalog", "", fmt.Sprintf("discounts=%d,promotions=%d", summary.Discounts, summary.Promotions))
	return summary, nil
}

func requireManager(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !auth.HasRole(actor, auth.RoleManager) {
		return fmt.Errorf("%w: manager role required", ErrForbidden)
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, terminalID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		TerminalID:    terminalID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.log.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}

// promotions never fails: without a catalog the cart is priced with no
// automatic promotions.
func (s *Service) promotions(ctx context.Context) []domain.Promotion {
	promos, err := s.catalog.Promotions(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("promotions unavailable, recomputing without them")
		return nil
	}
	return promos
}

func collaboratorError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, operation, err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrCollaborator), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}

type cartLock struct {
	mu   sync.Mutex
	refs int
}

// cartLocks serializes work on one cart id. Entries are dropped once no
// caller holds or waits on them.
type cartLocks struct {
	mu    sync.Mutex
	locks map[string]*cartLock
}

func newCartLocks() *cartLocks {
	return &cartLocks{locks: make(map[string]*cartLock)}
}

func (l *cartLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &cartLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *cartLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
