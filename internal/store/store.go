// Package store persists cart sessions and the audit trail.
package store

import (
	"context"
	"errors"
	"time"

	"cafepos/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid record")
)

// Repository stores cart sessions. SaveCart treats the UpdatedAt of the
// session it is given as the version the caller read and fails with
// ErrConflict when the stored session has moved on since.
type Repository interface {
	CreateCart(ctx context.Context, cart domain.CartSession) (*domain.CartSession, error)
	GetCart(ctx context.Context, id string) (*domain.CartSession, error)
	SaveCart(ctx context.Context, cart domain.CartSession) (*domain.CartSession, error)
	DeleteCart(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, terminalID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

// ValidateCart rejects sessions that break the cart shape every repository
// relies on.
func ValidateCart(cart domain.CartSession) error {
	if cart.ID == "" || cart.TerminalID == "" {
		return ErrInvalid
	}
	for _, line := range cart.State.Lines {
		if line.Quantity < 1 {
			return ErrInvalid
		}
	}
	return nil
}

// NextVersion returns the updated_at stamp for a save that replaces prev.
// Stamps carry microsecond precision so they survive a Postgres round trip,
// and each one is strictly later than the one it replaces.
func NextVersion(prev time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
