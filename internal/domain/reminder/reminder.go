package reminder

import (
	"database/sql"
	"errors"
	"time"

	"repguard/internal/domain/notify"

	"github.com/google/uuid"
)

// Type classifies a reminder within a contract's lifecycle.
type Type string

const (
	TypeWeeklyCheckin     Type = "WEEKLY_CHECKIN"
	TypeExpirationWarning Type = "EXPIRATION_WARNING"
	TypeRenewalDue        Type = "RENEWAL_DUE"
)

// Priority ranks a reminder for delivery and display.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Status tracks a reminder through dispatch. SENDING marks a row claimed by
// a dispatcher tick; CANCELLED is the soft-terminal state for reminders
// invalidated by renewal or breach. Neither is ever shown as pending work.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSending   Status = "SENDING"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further delivery attempt will move this status
// on its own. FAILED is not terminal: the process-pending operation may retry
// it until the configured attempt limit.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusCancelled
}

// ErrInvalidRecurrence is returned when recurrence fields violate the
// invariant that only weekly check-ins recur, with a positive interval.
var ErrInvalidRecurrence = errors.New("only weekly check-ins may recur, with a positive interval")

// Reminder is a scheduled, possibly recurring, notification tied to a
// contract. A recurring reminder is a single rolling row: dispatch advances
// ScheduledDate instead of inserting the next occurrence, keeping the table
// bounded per contract.
type Reminder struct {
	ID                    uuid.UUID
	ContractID            uuid.UUID
	ClientID              uuid.UUID
	AgentID               uuid.UUID
	Type                  Type
	ScheduledDate         time.Time
	NextSendDate          sql.NullTime // set only while a recurring row waits
	Priority              Priority
	Status                Status
	Method                notify.Method
	IsRecurring           bool
	RecurringIntervalDays sql.NullInt32
	Attempts              int
	FailureReason         sql.NullString
	LastAttemptAt         sql.NullTime
	ClaimedAt             sql.NullTime
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Validate enforces the recurrence invariants before persisting.
func (r *Reminder) Validate() error {
	if r.IsRecurring {
		if r.Type != TypeWeeklyCheckin {
			return ErrInvalidRecurrence
		}
		if !r.RecurringIntervalDays.Valid || r.RecurringIntervalDays.Int32 <= 0 {
			return ErrInvalidRecurrence
		}
	} else if r.RecurringIntervalDays.Valid {
		return ErrInvalidRecurrence
	}
	return nil
}

// Advance moves a recurring reminder to its next occurrence: the schedule
// shifts by exactly the recurrence interval from the previous occurrence
// (not from the dispatch instant), the status resets to PENDING and the
// attempt accounting is cleared.
func (r *Reminder) Advance() {
	if !r.IsRecurring || !r.RecurringIntervalDays.Valid {
		return
	}
	r.ScheduledDate = r.ScheduledDate.AddDate(0, 0, int(r.RecurringIntervalDays.Int32))
	r.NextSendDate = sql.NullTime{Time: r.ScheduledDate, Valid: true}
	r.Status = StatusPending
	r.Attempts = 0
	r.FailureReason = sql.NullString{}
	r.ClaimedAt = sql.NullTime{}
}
