package app

import (
	"context"
	"fmt"
	"time"

	"repguard/internal/domain/alert"
	"repguard/internal/domain/contract"
	"repguard/internal/domain/evidence"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DetectorService evaluates incoming activity evidence against the client's
// protected contracts and raises breach candidates. It never decides that a
// breach actually happened and never resolves one; that is a human action.
type DetectorService struct {
	contractRepo contract.Repository
	alerts       *AlertService
	log          *logrus.Logger
}

func NewDetectorService(cr contract.Repository, alerts *AlertService, log *logrus.Logger) *DetectorService {
	return &DetectorService{contractRepo: cr, alerts: alerts, log: log}
}

// Ingest matches one evidence record and raises at most one breach candidate.
// It returns the raised (or pre-existing, when deduplicated) alert, or nil
// when the record matches no protected contract. A transaction by the
// contract's own agent is not a breach.
func (s *DetectorService) Ingest(ctx context.Context, rec evidence.Record, now time.Time) (*alert.Alert, error) {
	contracts, err := s.contractRepo.ListActiveByClient(ctx, rec.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts for client %s: %w", rec.ClientID, err)
	}

	for _, c := range contracts {
		if !contract.Protects(c, now) {
			continue
		}
		if !c.Covers(rec.TransactionDate) {
			continue
		}
		if rec.TransactingAgentID != "" && rec.TransactingAgentID == c.AgentID.String() {
			continue
		}

		severity := alert.SeverityMedium
		if sideMatches(c.Type, rec.Side) {
			severity = alert.SeverityHigh
		}

		agentNote := "an unrepresented transaction"
		if rec.TransactingAgentID != "" {
			agentNote = fmt.Sprintf("agent %s", rec.TransactingAgentID)
		}

		a, err := s.alerts.Raise(ctx, RaiseAlertInput{
			ContractID: uuid.NullUUID{UUID: c.ID, Valid: true},
			AgentID:    c.AgentID,
			Type:       alert.TypeBreach,
			Severity:   severity,
			Title:      fmt.Sprintf("Possible bypass on property %s", rec.PropertyRef),
			Description: fmt.Sprintf("Public records show a %s on %s via %s while the representation agreement was in force.",
				rec.Side, rec.TransactionDate.Format("2006-01-02"), agentNote),
			DedupKey: alert.BreachDedupKey(c.ID, rec.TransactionRef),
		}, now)
		if err != nil {
			return nil, fmt.Errorf("failed to raise breach candidate for contract %s: %w", c.ID, err)
		}
		s.log.WithFields(logrus.Fields{
			"contract_id":     c.ID,
			"transaction_ref": rec.TransactionRef,
			"severity":        severity,
		}).Info("Breach candidate recorded")
		return a, nil
	}
	return nil, nil
}

// IngestBatch feeds a pulled batch through Ingest. A record that fails is
// logged and skipped; the feed re-delivers and dedup absorbs the replay.
func (s *DetectorService) IngestBatch(ctx context.Context, records []evidence.Record, now time.Time) (raised int, err error) {
	for _, rec := range records {
		a, ingestErr := s.Ingest(ctx, rec, now)
		if ingestErr != nil {
			s.log.WithError(ingestErr).WithField("transaction_ref", rec.TransactionRef).
				Error("Evidence record ingestion failed")
			err = ingestErr
			continue
		}
		if a != nil {
			raised++
		}
	}
	return raised, err
}

// sideMatches reports whether the evidence transaction side lines up with
// the representation type: a purchase breaches a buyer agreement, a sale
// breaches a seller agreement, and dual representation matches both.
func sideMatches(rt contract.RepresentationType, side evidence.TransactionSide) bool {
	switch rt {
	case contract.RepresentationBuyer:
		return side == evidence.SidePurchase
	case contract.RepresentationSeller:
		return side == evidence.SideSale
	case contract.RepresentationDual:
		return side == evidence.SidePurchase || side == evidence.SideSale
	}
	return false
}
