package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repguard/internal/domain/alert"
	"repguard/internal/domain/contract"
	"repguard/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContractService owns the contract lifecycle: registration, renewal,
// manual breach flagging and the daily expiration sweep. Contracts are
// never hard-deleted; renewal supersedes and the old row stays for audit.
type ContractService struct {
	contractRepo contract.Repository
	reminderRepo reminder.Repository
	scheduler    *ReminderScheduler
	alerts       *AlertService
	log          *logrus.Logger
}

func NewContractService(cr contract.Repository, rr reminder.Repository, scheduler *ReminderScheduler, alerts *AlertService, log *logrus.Logger) *ContractService {
	return &ContractService{
		contractRepo: cr,
		reminderRepo: rr,
		scheduler:    scheduler,
		alerts:       alerts,
		log:          log,
	}
}

// RegisterContractInput describes a newly uploaded representation agreement.
type RegisterContractInput struct {
	AgentID     uuid.UUID
	ClientID    uuid.UUID
	Type        contract.RepresentationType
	StartDate   time.Time
	EndDate     time.Time
	DocumentRef string
}

// Register stores a new contract and derives its reminder plan. The contract
// is persisted even when reminder setup fails; the error is returned so the
// caller can re-run setup, which is idempotent.
func (s *ContractService) Register(ctx context.Context, in RegisterContractInput, now time.Time) (*contract.Contract, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidInput,
			in.EndDate.Format("2006-01-02"), in.StartDate.Format("2006-01-02"))
	}

	c := &contract.Contract{
		ID:        uuid.New(),
		AgentID:   in.AgentID,
		ClientID:  in.ClientID,
		Type:      in.Type,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		RawStatus: contract.RawActive,
	}
	if in.DocumentRef != "" {
		c.DocumentRef = sql.NullString{String: in.DocumentRef, Valid: true}
	}

	if err := s.contractRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}
	s.log.WithFields(logrus.Fields{"contract_id": c.ID, "agent_id": c.AgentID}).Info("Contract registered")

	if contract.Protects(c, now) {
		if _, _, err := s.scheduler.SetupForContract(ctx, c, now); err != nil {
			return c, fmt.Errorf("contract %s registered but reminder setup failed: %w", c.ID, err)
		}
	}
	return c, nil
}

// Renew supersedes the contract with a successor carrying the new end date.
// Pending reminders tied to the superseded terms are soft-cancelled (the
// weekly check-in included; the successor gets a fresh one) and the
// successor's plan is scheduled.
func (s *ContractService) Renew(ctx context.Context, contractID uuid.UUID, newEndDate time.Time, now time.Time) (*contract.Contract, error) {
	old, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if old.RawStatus != contract.RawActive {
		return nil, fmt.Errorf("%w: cannot renew contract %s with raw status %s", ErrInvalidState, contractID, old.RawStatus)
	}
	if newEndDate.Before(old.StartDate) {
		return nil, fmt.Errorf("%w: renewal end date %s is before start date %s", ErrInvalidInput,
			newEndDate.Format("2006-01-02"), old.StartDate.Format("2006-01-02"))
	}

	successor := &contract.Contract{
		ID:          uuid.New(),
		AgentID:     old.AgentID,
		ClientID:    old.ClientID,
		Type:        old.Type,
		StartDate:   old.StartDate,
		EndDate:     newEndDate,
		RawStatus:   contract.RawActive,
		DocumentRef: old.DocumentRef,
	}

	if err := s.contractRepo.Supersede(ctx, old, successor); err != nil {
		return nil, fmt.Errorf("failed to supersede contract %s: %w", contractID, err)
	}

	cancelled, err := s.reminderRepo.CancelPending(ctx, old.ID, false)
	if err != nil {
		return successor, fmt.Errorf("contract %s renewed but cancelling old reminders failed: %w", contractID, err)
	}
	s.log.WithFields(logrus.Fields{
		"contract_id":  old.ID,
		"successor_id": successor.ID,
		"cancelled":    cancelled,
	}).Info("Contract renewed")

	if _, _, err := s.scheduler.SetupForContract(ctx, successor, now); err != nil {
		return successor, fmt.Errorf("contract %s renewed but reminder setup failed: %w", contractID, err)
	}
	return successor, nil
}

// FlagBreach manually marks a contract breached, cancels its future one-time
// reminders (the weekly check-in keeps running until the contract is closed)
// and raises a high-severity breach alert. Flagging twice is a no-op.
func (s *ContractService) FlagBreach(ctx context.Context, contractID uuid.UUID, reason string, now time.Time) (*contract.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.RawStatus == contract.RawBreached {
		return c, nil
	}
	if c.RawStatus != contract.RawActive {
		return nil, fmt.Errorf("%w: cannot flag contract %s with raw status %s", ErrInvalidState, contractID, c.RawStatus)
	}

	c.RawStatus = contract.RawBreached
	if err := s.contractRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to flag contract %s breached: %w", contractID, err)
	}

	if _, err := s.reminderRepo.CancelPending(ctx, c.ID, true); err != nil {
		s.log.WithError(err).WithField("contract_id", c.ID).Error("Failed to cancel one-time reminders after breach flag")
	}

	description := reason
	if description == "" {
		description = "Contract manually flagged as breached."
	}
	if _, err := s.alerts.Raise(ctx, RaiseAlertInput{
		ContractID:  uuid.NullUUID{UUID: c.ID, Valid: true},
		AgentID:     c.AgentID,
		Type:        alert.TypeBreach,
		Severity:    alert.SeverityHigh,
		Title:       "Contract flagged as breached",
		Description: description,
		DedupKey:    alert.BreachDedupKey(c.ID, "manual"),
	}, now); err != nil {
		s.log.WithError(err).WithField("contract_id", c.ID).Error("Failed to raise manual breach alert")
	}
	return c, nil
}

// Close ends the agreement: the raw status moves to CLOSED and every pending
// reminder, recurring check-ins included, is soft-cancelled.
func (s *ContractService) Close(ctx context.Context, contractID uuid.UUID) (*contract.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.RawStatus == contract.RawClosed {
		return c, nil
	}
	if c.RawStatus == contract.RawSuperseded {
		return nil, fmt.Errorf("%w: contract %s is superseded", ErrInvalidState, contractID)
	}

	c.RawStatus = contract.RawClosed
	if err := s.contractRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to close contract %s: %w", contractID, err)
	}
	if _, err := s.reminderRepo.CancelPending(ctx, c.ID, false); err != nil {
		return c, fmt.Errorf("contract %s closed but cancelling reminders failed: %w", contractID, err)
	}
	return c, nil
}

// ListExpiringWithin returns the agent's contracts whose protection ends
// within the given number of days.
func (s *ContractService) ListExpiringWithin(ctx context.Context, agentID uuid.UUID, days int, now time.Time) ([]*contract.Contract, error) {
	return s.contractRepo.ListExpiringWithin(ctx, agentID, now, now.AddDate(0, 0, days))
}

// ScanExpirations is the daily sweep: it raises a deduped expiration alert
// for every contract that entered the expiring window or ran out, and an
// informational alert for rows with corrupt dates. Re-running the sweep
// creates nothing new while the previous alerts are unresolved.
func (s *ContractService) ScanExpirations(ctx context.Context, now time.Time) (raised int, err error) {
	contracts, err := s.contractRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active contracts for expiration scan: %w", err)
	}

	for _, c := range contracts {
		status, integrityWarn := contract.Evaluate(c, now)
		if integrityWarn {
			s.log.WithField("contract_id", c.ID).Warn("Contract has end date before start date; treating as expired")
			if _, raiseErr := s.alerts.Raise(ctx, RaiseAlertInput{
				ContractID:  uuid.NullUUID{UUID: c.ID, Valid: true},
				AgentID:     c.AgentID,
				Type:        alert.TypeInformational,
				Severity:    alert.SeverityLow,
				Title:       "Contract dates need review",
				Description: "The contract's end date precedes its start date; it is treated as expired until corrected.",
				DedupKey:    alert.IntegrityDedupKey(c.ID),
			}, now); raiseErr != nil {
				err = raiseErr
			}
			continue
		}

		var in RaiseAlertInput
		switch status {
		case contract.StatusExpiring:
			in = RaiseAlertInput{
				ContractID: uuid.NullUUID{UUID: c.ID, Valid: true},
				AgentID:    c.AgentID,
				Type:       alert.TypeExpiration,
				Severity:   alert.SeverityMedium,
				Title:      fmt.Sprintf("Contract expires on %s", c.EndDate.Format("2006-01-02")),
				Description: fmt.Sprintf("The representation agreement enters its final %d days.",
					int(c.EndDate.Sub(now).Hours()/24)+1),
				DedupKey: alert.ExpirationDedupKey(c.ID, c.EndDate, "expiring"),
			}
		case contract.StatusExpired:
			in = RaiseAlertInput{
				ContractID:  uuid.NullUUID{UUID: c.ID, Valid: true},
				AgentID:     c.AgentID,
				Type:        alert.TypeExpiration,
				Severity:    alert.SeverityHigh,
				Title:       fmt.Sprintf("Contract expired on %s", c.EndDate.Format("2006-01-02")),
				Description: "The representation agreement no longer protects this relationship.",
				DedupKey:    alert.ExpirationDedupKey(c.ID, c.EndDate, "expired"),
			}
		default:
			continue
		}

		a, raiseErr := s.alerts.Raise(ctx, in, now)
		if raiseErr != nil {
			s.log.WithError(raiseErr).WithField("contract_id", c.ID).Error("Failed to raise expiration alert")
			err = raiseErr
			continue
		}
		if a.CreatedAt.Equal(now) {
			raised++
		}
	}
	return raised, err
}
