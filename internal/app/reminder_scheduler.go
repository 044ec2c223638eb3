package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repguard/internal/domain/contract"
	domainNotify "repguard/internal/domain/notify"
	"repguard/internal/domain/reminder"
	idb "repguard/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	weeklyCheckinIntervalDays = 7
	expirationWarningLead     = 30 * 24 * time.Hour
	renewalDueLead            = 7 * 24 * time.Hour
)

// ReminderScheduler derives a contract's reminder plan and persists it:
// a recurring weekly check-in, a 30-day expiration warning and a 7-day
// renewal-due warning. Setup is idempotent; re-running it creates nothing
// new for an already-scheduled contract.
type ReminderScheduler struct {
	reminderRepo reminder.Repository
	contractRepo contract.Repository
	log          *logrus.Logger
}

func NewReminderScheduler(rr reminder.Repository, cr contract.Repository, log *logrus.Logger) *ReminderScheduler {
	return &ReminderScheduler{reminderRepo: rr, contractRepo: cr, log: log}
}

// SetupResult reports what a batch setup pass did.
type SetupResult struct {
	ContractsProcessed int
	RemindersCreated   int
	DuplicatesSkipped  int
}

// SetupForContract creates the missing reminders for one contract. A
// contract with no protection window (breached or expired) is refused with
// ErrInvalidState. Warnings whose target date already passed are scheduled
// for immediate dispatch rather than skipped, so a late-registered contract
// is not silently unprotected.
func (s *ReminderScheduler) SetupForContract(ctx context.Context, c *contract.Contract, now time.Time) (created, skipped int, err error) {
	status, integrityWarn := contract.Evaluate(c, now)
	if integrityWarn {
		s.log.WithField("contract_id", c.ID).Warn("Contract has end date before start date; treating as expired")
	}
	if status == contract.StatusBreached || status == contract.StatusExpired {
		return 0, 0, fmt.Errorf("%w: contract %s has no protection window (status %s)", ErrInvalidState, c.ID, status)
	}

	for _, plan := range reminderPlan(c, now) {
		exists, err := s.reminderRepo.ExistsActiveByType(ctx, c.ID, plan.Type)
		if err != nil {
			return created, skipped, fmt.Errorf("failed to check existing %s reminder for contract %s: %w", plan.Type, c.ID, err)
		}
		if exists {
			skipped++
			continue
		}
		if err := s.reminderRepo.Create(ctx, plan); err != nil {
			if errors.Is(err, idb.ErrDuplicateReminder) {
				// Lost the race to a concurrent setup; same outcome.
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("failed to create %s reminder for contract %s: %w", plan.Type, c.ID, err)
		}
		created++
	}

	s.log.WithFields(logrus.Fields{
		"contract_id": c.ID,
		"created":     created,
		"skipped":     skipped,
	}).Debug("Reminder setup completed for contract")
	return created, skipped, nil
}

// reminderPlan builds the full reminder set for a contract. Target dates in
// the past clamp to now.
func reminderPlan(c *contract.Contract, now time.Time) []*reminder.Reminder {
	weekly := &reminder.Reminder{
		ID:            uuid.New(),
		ContractID:    c.ID,
		ClientID:      c.ClientID,
		AgentID:       c.AgentID,
		Type:          reminder.TypeWeeklyCheckin,
		ScheduledDate: now.AddDate(0, 0, weeklyCheckinIntervalDays),
		Priority:      reminder.PriorityNormal,
		Status:        reminder.StatusPending,
		Method:        domainNotify.MethodInApp,
		IsRecurring:   true,
		RecurringIntervalDays: sql.NullInt32{
			Int32: weeklyCheckinIntervalDays,
			Valid: true,
		},
	}
	weekly.NextSendDate = sql.NullTime{Time: weekly.ScheduledDate, Valid: true}

	expiration := &reminder.Reminder{
		ID:            uuid.New(),
		ContractID:    c.ID,
		ClientID:      c.ClientID,
		AgentID:       c.AgentID,
		Type:          reminder.TypeExpirationWarning,
		ScheduledDate: clampToNow(c.EndDate.Add(-expirationWarningLead), now),
		Priority:      reminder.PriorityHigh,
		Status:        reminder.StatusPending,
		Method:        domainNotify.MethodEmail,
	}

	renewal := &reminder.Reminder{
		ID:            uuid.New(),
		ContractID:    c.ID,
		ClientID:      c.ClientID,
		AgentID:       c.AgentID,
		Type:          reminder.TypeRenewalDue,
		ScheduledDate: clampToNow(c.EndDate.Add(-renewalDueLead), now),
		Priority:      reminder.PriorityUrgent,
		Status:        reminder.StatusPending,
		Method:        domainNotify.MethodEmail,
	}

	return []*reminder.Reminder{weekly, expiration, renewal}
}

func clampToNow(target, now time.Time) time.Time {
	if target.Before(now) {
		return now
	}
	return target
}

// SetupForAgent runs setup over every protected contract the agent owns.
// Contracts without a protection window are skipped, not errors; the batch
// is safe to re-run at any time.
func (s *ReminderScheduler) SetupForAgent(ctx context.Context, agentID uuid.UUID, now time.Time) (SetupResult, error) {
	contracts, err := s.contractRepo.ListActiveByAgent(ctx, agentID)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to list contracts for agent %s: %w", agentID, err)
	}
	return s.setupBatch(ctx, contracts, now)
}

// SetupAllActive is the maintenance sweep across all agents.
func (s *ReminderScheduler) SetupAllActive(ctx context.Context, now time.Time) (SetupResult, error) {
	contracts, err := s.contractRepo.ListActive(ctx)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to list active contracts: %w", err)
	}
	return s.setupBatch(ctx, contracts, now)
}

func (s *ReminderScheduler) setupBatch(ctx context.Context, contracts []*contract.Contract, now time.Time) (SetupResult, error) {
	var res SetupResult
	for _, c := range contracts {
		if !contract.Protects(c, now) {
			continue
		}
		created, skipped, err := s.SetupForContract(ctx, c, now)
		res.RemindersCreated += created
		res.DuplicatesSkipped += skipped
		if err != nil {
			// Partial progress is fine; every operation is idempotent and the
			// next run picks up where this one failed.
			s.log.WithError(err).WithField("contract_id", c.ID).Error("Reminder setup failed for contract")
			return res, err
		}
		res.ContractsProcessed++
	}
	return res, nil
}
