package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/xid"
)

// Store keeps carts and audit logs in process memory. Carts are stored as
// deep copies so callers never share state with the store.
type Store struct {
	mu        sync.RWMutex
	carts     map[string]domain.CartSession
	auditLogs []domain.AuditLog
}

func New() *Store {
	return &Store{
		carts:     make(map[string]domain.CartSession),
		auditLogs: make([]domain.AuditLog, 0, 128),
	}
}

func (s *Store) CreateCart(_ context.Context, cart domain.CartSession) (*domain.CartSession, error) {
	if cart.ID == "" {
		cart.ID = xid.New("cart")
	}
	now := store.NextVersion(time.Time{})
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if err := store.ValidateCart(cart); err != nil {
		return nil, err
	}

	copied, err := cloneCart(cart)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.carts[cart.ID]; exists {
		return nil, store.ErrConflict
	}
	s.carts[cart.ID] = copied
	return &cart, nil
}

func (s *Store) GetCart(_ context.Context, id string) (*domain.CartSession, error) {
	s.mu.RLock()
	cart, ok := s.carts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	copied, err := cloneCart(cart)
	if err != nil {
		return nil, err
	}
	return &copied, nil
}

func (s *Store) SaveCart(_ context.Context, cart domain.CartSession) (*domain.CartSession, error) {
	if err := store.ValidateCart(cart); err != nil {
		return nil, err
	}
	copied, err := cloneCart(cart)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.carts[cart.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !existing.UpdatedAt.Equal(cart.UpdatedAt) {
		return nil, store.ErrConflict
	}
	cart.CreatedAt = existing.CreatedAt
	cart.UpdatedAt = store.NextVersion(existing.UpdatedAt)
	copied.CreatedAt, copied.UpdatedAt = cart.CreatedAt, cart.UpdatedAt
	s.carts[cart.ID] = copied
	return &cart, nil
}

func (s *Store) DeleteCart(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.carts, id)
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, terminalID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if terminalID != "" && entry.TerminalID != terminalID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneCart deep copies through JSON, the same encoding the postgres store
// persists, so both backends hand back identical shapes.
func cloneCart(cart domain.CartSession) (domain.CartSession, error) {
	raw, err := json.Marshal(cart.State)
	if err != nil {
		return domain.CartSession{}, err
	}
	var state domain.CartState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.CartSession{}, err
	}
	cart.State = state
	return cart, nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
