package ports

import (
	"context"

	"nebula-shopify-bridge/internal/domain"
)

// Repository defines the interface for persistence.
type Repository interface {
	// Shop operations
	SaveShop(ctx context.Context, shop *domain.Shop) error
	GetShop(ctx context.Context, domain string) (*domain.Shop, error)
	ListShops(ctx context.Context) ([]*domain.Shop, error)
	DeleteShop(ctx context.Context, domain string) error

	// Reconciliation audit trail
	LogReconcile(ctx context.Context, record *domain.ReconcileRecord) error
}

// SessionRepository persists in-flight OAuth sessions keyed by state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, state string) (*domain.Session, error)
	DeleteSession(ctx context.Context, state string) error
}
