package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and claiming reminders.
//
// Create relies on a storage-level constraint so that a contract holds at
// most one pending reminder per (type, scheduled day); violating it fails
// with the duplicate sentinel, which schedulers treat as success.
type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error

	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*Reminder, error)

	// ExistsActiveByType reports whether the contract already has a reminder
	// of the given type that was not cancelled. Sent one-time warnings count:
	// a warning already delivered for this protection window must not be
	// re-scheduled by a later setup pass.
	ExistsActiveByType(ctx context.Context, contractID uuid.UUID, t Type) (bool, error)

	// ClaimDue atomically transitions up to limit rows to SENDING and returns
	// them: pending rows due at now, plus SENDING rows claimed before
	// staleBefore (a dispatcher that died mid-flight). The claim guarantees
	// at-most-once processing per occurrence across concurrent ticks.
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Reminder, error)

	// ClaimFailed atomically claims failed rows with fewer than maxAttempts
	// delivery attempts, for the explicit process-pending retry pass.
	ClaimFailed(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*Reminder, error)

	// CancelPending soft-cancels the contract's pending reminders and returns
	// how many were cancelled. With oneTimeOnly set, recurring check-ins are
	// left running.
	CancelPending(ctx context.Context, contractID uuid.UUID, oneTimeOnly bool) (int64, error)

	// ListNeedsAttention returns failed reminders that exhausted their retry
	// budget and need human follow-up, oldest first.
	ListNeedsAttention(ctx context.Context, agentID uuid.UUID, maxAttempts int) ([]*Reminder, error)
}
