package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repguard/internal/domain/alert"
	domainNotify "repguard/internal/domain/notify"
	idb "repguard/internal/infra/database"
	infraNotify "repguard/internal/infra/notify"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertService creates, deduplicates and tracks the read/resolved state of
// alerts. Raising is idempotent per dedup key: a live duplicate returns the
// existing alert as success, never an error.
type AlertService struct {
	alertRepo     alert.Repository
	notifier      domainNotify.Notifier
	log           *logrus.Logger
	notifyTimeout time.Duration
}

func NewAlertService(ar alert.Repository, notifier domainNotify.Notifier, log *logrus.Logger, notifyTimeout time.Duration) *AlertService {
	return &AlertService{
		alertRepo:     ar,
		notifier:      notifier,
		log:           log,
		notifyTimeout: notifyTimeout,
	}
}

// RaiseAlertInput describes the alert to raise. DedupKey identifies the
// logical event; two raises with the same key while the first is unresolved
// collapse into one alert.
type RaiseAlertInput struct {
	ContractID  uuid.NullUUID
	AgentID     uuid.UUID
	Type        alert.Type
	Severity    alert.Severity
	Title       string
	Description string
	DedupKey    string
}

// Raise records an alert. When an unresolved alert with the same dedup key
// already exists, the existing alert is returned unmodified. Breach and
// expiration alerts also enqueue a notification to the agent; a notification
// failure is logged and never fails the raise.
func (s *AlertService) Raise(ctx context.Context, in RaiseAlertInput, now time.Time) (*alert.Alert, error) {
	if in.Type == alert.TypeBreach && in.Severity == alert.SeverityLow {
		return nil, fmt.Errorf("%w: breach alerts are high or medium severity", ErrInvalidInput)
	}
	if in.DedupKey == "" {
		return nil, fmt.Errorf("%w: alert dedup key is required", ErrInvalidInput)
	}

	a := &alert.Alert{
		ID:          uuid.New(),
		ContractID:  in.ContractID,
		AgentID:     in.AgentID,
		Type:        in.Type,
		Severity:    in.Severity,
		Title:       in.Title,
		Description: in.Description,
		DedupKey:    in.DedupKey,
		CreatedAt:   now,
	}

	err := s.alertRepo.Create(ctx, a)
	if errors.Is(err, idb.ErrDuplicateAlert) {
		existing, getErr := s.alertRepo.GetUnresolvedByDedupKey(ctx, in.DedupKey)
		if getErr != nil {
			return nil, fmt.Errorf("duplicate alert for key %s but lookup failed: %w", in.DedupKey, getErr)
		}
		s.log.WithFields(logrus.Fields{"dedup_key": in.DedupKey, "alert_id": existing.ID}).
			Debug("Duplicate alert suppressed")
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	if a.Type == alert.TypeBreach || a.Type == alert.TypeExpiration {
		s.notifyAsync(a)
	}
	return a, nil
}

// notifyAsync fires the agent notification without blocking or failing the
// raise. The engine treats notification transport as best effort here.
func (s *AlertService) notifyAsync(a *alert.Alert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		templateID := infraNotify.TemplateAlertExpiration
		if a.Type == alert.TypeBreach {
			templateID = infraNotify.TemplateAlertBreach
		}
		_, err := s.notifier.Send(ctx, domainNotify.Notification{
			Method:     domainNotify.MethodInApp,
			Recipient:  a.AgentID.String(),
			TemplateID: templateID,
			Payload: map[string]string{
				"title":    a.Title,
				"severity": string(a.Severity),
			},
		})
		if err != nil {
			s.log.WithError(err).WithField("alert_id", a.ID).Warn("Alert notification failed")
		}
	}()
}

// MarkRead sets the read flag. Marking an already-read alert is a no-op.
func (s *AlertService) MarkRead(ctx context.Context, alertID uuid.UUID) (*alert.Alert, error) {
	a, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.IsRead {
		return a, nil
	}
	a.IsRead = true
	if err := s.alertRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to mark alert %s read: %w", alertID, err)
	}
	return a, nil
}

// Resolve closes an alert. Only an unresolved alert may be resolved; a
// second resolve fails with ErrInvalidState.
func (s *AlertService) Resolve(ctx context.Context, alertID uuid.UUID, now time.Time) (*alert.Alert, error) {
	a, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.Resolved() {
		return nil, fmt.Errorf("%w: alert %s is already resolved", ErrInvalidState, alertID)
	}
	a.ResolvedAt = sql.NullTime{Time: now, Valid: true}
	if err := s.alertRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to resolve alert %s: %w", alertID, err)
	}
	return a, nil
}

// ListActive returns the agent's unresolved alerts, newest first.
func (s *AlertService) ListActive(ctx context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	return s.alertRepo.ListUnresolvedByAgent(ctx, agentID)
}

// ListForContract returns all alerts for a contract, newest first.
func (s *AlertService) ListForContract(ctx context.Context, contractID uuid.UUID) ([]*alert.Alert, error) {
	return s.alertRepo.ListByContract(ctx, contractID)
}

// ListForAgent returns all alerts for an agent, unread first, then newest.
func (s *AlertService) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	return s.alertRepo.ListByAgent(ctx, agentID)
}
