package contract

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving contracts.
type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	Update(ctx context.Context, c *Contract) error

	// Supersede atomically marks the old contract SUPERSEDED and inserts its
	// successor, so a renewal never leaves the client half-covered.
	Supersede(ctx context.Context, old *Contract, successor *Contract) error

	ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]*Contract, error)
	ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]*Contract, error)
	// ListExpiringWithin returns raw-active contracts whose end date falls in
	// (from, until], ordered by end date ascending.
	ListExpiringWithin(ctx context.Context, agentID uuid.UUID, from, until time.Time) ([]*Contract, error)
	// ListActive returns raw-active contracts across all agents, for the
	// daily maintenance sweep.
	ListActive(ctx context.Context) ([]*Contract, error)
}
