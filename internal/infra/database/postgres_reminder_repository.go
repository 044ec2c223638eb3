package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repguard/internal/domain/reminder"

	"github.com/google/uuid"
)

// Custom errors specific to the reminder repository.
var ErrReminderNotFound = fmt.Errorf("reminder not found")
var ErrDuplicateReminder = fmt.Errorf("pending reminder for this contract, type and day already exists")

// remindersPendingIndex is the partial unique index guaranteeing at most one
// pending reminder per (contract, type, scheduled day). Repeated setup calls
// race on it instead of on a read-then-write check.
const remindersPendingIndex = "reminders_pending_slot_unique"

type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

const reminderColumns = `id, contract_id, client_id, agent_id, reminder_type, scheduled_date, next_send_date,
	priority, status, method, is_recurring, recurring_interval_days, attempts, failure_reason,
	last_attempt_at, claimed_at, created_at, updated_at`

func scanReminder(row interface{ Scan(...any) error }) (*reminder.Reminder, error) {
	rem := &reminder.Reminder{}
	err := row.Scan(&rem.ID, &rem.ContractID, &rem.ClientID, &rem.AgentID, &rem.Type,
		&rem.ScheduledDate, &rem.NextSendDate, &rem.Priority, &rem.Status, &rem.Method,
		&rem.IsRecurring, &rem.RecurringIntervalDays, &rem.Attempts, &rem.FailureReason,
		&rem.LastAttemptAt, &rem.ClaimedAt, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rem, nil
}

func scanReminders(rows *sql.Rows) ([]*reminder.Reminder, error) {
	reminders := make([]*reminder.Reminder, 0)
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reminder row: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return reminders, nil
}

func (r *PostgresReminderRepository) Create(ctx context.Context, rem *reminder.Reminder) error {
	if err := rem.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO reminders (id, contract_id, client_id, agent_id, reminder_type, scheduled_date,
               next_send_date, priority, status, method, is_recurring, recurring_interval_days)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, rem.ID, rem.ContractID, rem.ClientID, rem.AgentID,
		rem.Type, rem.ScheduledDate, rem.NextSendDate, rem.Priority, rem.Status, rem.Method,
		rem.IsRecurring, rem.RecurringIntervalDays).Scan(&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, remindersPendingIndex) {
			return ErrDuplicateReminder
		}
		return fmt.Errorf("error creating reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting reminder by ID: %w", err)
	}
	return rem, nil
}

func (r *PostgresReminderRepository) Update(ctx context.Context, rem *reminder.Reminder) error {
	query := `UPDATE reminders
               SET scheduled_date = $1, next_send_date = $2, status = $3, attempts = $4,
                   failure_reason = $5, last_attempt_at = $6, claimed_at = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, rem.ScheduledDate, rem.NextSendDate, rem.Status,
		rem.Attempts, rem.FailureReason, rem.LastAttemptAt, rem.ClaimedAt, rem.ID).Scan(&rem.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrReminderNotFound
		}
		return fmt.Errorf("error updating reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
               WHERE contract_id = $1 ORDER BY scheduled_date ASC`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders by contract: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *PostgresReminderRepository) ExistsActiveByType(ctx context.Context, contractID uuid.UUID, t reminder.Type) (bool, error) {
	query := `SELECT EXISTS(
               SELECT 1 FROM reminders
               WHERE contract_id = $1 AND reminder_type = $2 AND status != $3)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, contractID, t, reminder.StatusCancelled).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking existing reminder: %w", err)
	}
	return exists, nil
}

// ClaimDue moves due pending rows (and stale in-flight rows from a crashed
// dispatcher) to SENDING and returns them. FOR UPDATE SKIP LOCKED keeps
// concurrent ticks from claiming the same occurrence twice.
func (r *PostgresReminderRepository) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*reminder.Reminder, error) {
	query := `UPDATE reminders SET status = $1, claimed_at = $2, updated_at = NOW()
               WHERE id IN (
                 SELECT id FROM reminders
                 WHERE (status = $3 AND scheduled_date <= $2)
                    OR (status = $1 AND claimed_at < $4)
                 ORDER BY scheduled_date ASC
                 LIMIT $5
                 FOR UPDATE SKIP LOCKED
               )
               RETURNING ` + reminderColumns
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusSending, now, reminder.StatusPending, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("error claiming due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ClaimFailed claims failed rows still inside their retry budget for the
// explicit process-pending pass.
func (r *PostgresReminderRepository) ClaimFailed(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*reminder.Reminder, error) {
	query := `UPDATE reminders SET status = $1, claimed_at = $2, updated_at = NOW()
               WHERE id IN (
                 SELECT id FROM reminders
                 WHERE status = $3 AND attempts < $4
                 ORDER BY scheduled_date ASC
                 LIMIT $5
                 FOR UPDATE SKIP LOCKED
               )
               RETURNING ` + reminderColumns
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusSending, now, reminder.StatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("error claiming failed reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *PostgresReminderRepository) CancelPending(ctx context.Context, contractID uuid.UUID, oneTimeOnly bool) (int64, error) {
	query := `UPDATE reminders SET status = $1, updated_at = NOW()
               WHERE contract_id = $2 AND status = $3 AND ($4 = FALSE OR is_recurring = FALSE)`
	res, err := r.db.ExecContext(ctx, query, reminder.StatusCancelled, contractID, reminder.StatusPending, oneTimeOnly)
	if err != nil {
		return 0, fmt.Errorf("error cancelling pending reminders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking cancel result: %w", err)
	}
	return affected, nil
}

func (r *PostgresReminderRepository) ListNeedsAttention(ctx context.Context, agentID uuid.UUID, maxAttempts int) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
               WHERE agent_id = $1 AND status = $2 AND attempts >= $3
               ORDER BY scheduled_date ASC`
	rows, err := r.db.QueryContext(ctx, query, agentID, reminder.StatusFailed, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders needing attention: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}
