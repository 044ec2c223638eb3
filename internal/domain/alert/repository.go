package alert

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and querying alerts.
//
// Create must be linearizable per dedup key: when an unresolved alert with
// the same key already exists, it fails with the duplicate sentinel instead
// of inserting, backed by a storage-level unique constraint rather than a
// read-then-write check.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	GetUnresolvedByDedupKey(ctx context.Context, dedupKey string) (*Alert, error)
	Update(ctx context.Context, a *Alert) error

	// ListUnresolvedByAgent returns unresolved alerts, newest first.
	ListUnresolvedByAgent(ctx context.Context, agentID uuid.UUID) ([]*Alert, error)
	// ListByContract returns all alerts for a contract, newest first.
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*Alert, error)
	// ListByAgent returns all alerts for an agent, unread first, then newest.
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*Alert, error)
}
