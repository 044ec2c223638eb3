package alert

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies an alert.
type Type string

const (
	TypeBreach        Type = "BREACH"
	TypeExpiration    Type = "EXPIRATION"
	TypeInformational Type = "INFORMATIONAL"
)

// Severity ranks an alert for display and triage.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Alert is a recorded condition requiring the agent's attention. Breach
// alerts are candidates for human review; the engine never resolves them on
// its own. Alerts are retained indefinitely for compliance history.
type Alert struct {
	ID          uuid.UUID
	ContractID  uuid.NullUUID // null for alerts not tied to a contract
	AgentID     uuid.UUID
	Type        Type
	Severity    Severity
	Title       string
	Description string
	DedupKey    string
	IsRead      bool
	CreatedAt   time.Time
	ResolvedAt  sql.NullTime
}

// Resolved reports whether the alert has been resolved by a human action.
func (a *Alert) Resolved() bool {
	return a.ResolvedAt.Valid
}

// BreachDedupKey identifies a breach candidate by contract and the evidence
// transaction that triggered it. Re-ingesting the same evidence maps to the
// same key, so a live duplicate is suppressed by the storage constraint.
func BreachDedupKey(contractID uuid.UUID, transactionRef string) string {
	return fmt.Sprintf("breach:%s:%s", contractID, transactionRef)
}

// ExpirationDedupKey identifies an expiration alert by contract and the end
// date it warns about, so a renewal with a new end date produces a fresh key.
func ExpirationDedupKey(contractID uuid.UUID, endDate time.Time, marker string) string {
	return fmt.Sprintf("expiration:%s:%s:%s", contractID, endDate.UTC().Format("2006-01-02"), marker)
}

// IntegrityDedupKey identifies a data-integrity warning for a contract.
func IntegrityDedupKey(contractID uuid.UUID) string {
	return fmt.Sprintf("integrity:%s", contractID)
}
