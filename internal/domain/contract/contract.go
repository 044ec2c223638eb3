package contract

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RepresentationType is the side of the transaction the agent represents.
type RepresentationType string

const (
	RepresentationBuyer  RepresentationType = "BUYER"
	RepresentationSeller RepresentationType = "SELLER"
	RepresentationDual   RepresentationType = "DUAL"
)

// RawStatus is the stored status flag, set only by external actions
// (manual breach flagging, renewal supersession, closing). The lifecycle
// state shown to callers is the computed EffectiveStatus, never this.
type RawStatus string

const (
	RawActive     RawStatus = "ACTIVE"
	RawBreached   RawStatus = "BREACHED"
	RawSuperseded RawStatus = "SUPERSEDED"
	RawClosed     RawStatus = "CLOSED"
)

// EffectiveStatus is the computed protection state at an evaluation instant.
type EffectiveStatus string

const (
	StatusActive   EffectiveStatus = "ACTIVE"
	StatusExpiring EffectiveStatus = "EXPIRING"
	StatusExpired  EffectiveStatus = "EXPIRED"
	StatusBreached EffectiveStatus = "BREACHED"
)

// ExpiringWindow is the remaining-protection span reported as EXPIRING.
// The boundary is inclusive: exactly 30 days left counts as expiring.
const ExpiringWindow = 30 * 24 * time.Hour

// Contract is an exclusive representation agreement between an agent and a
// client. Corresponds to the 'contracts' table. Superseded rows are retained
// for the audit trail; contracts are never hard-deleted.
type Contract struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	ClientID    uuid.UUID
	Type        RepresentationType
	StartDate   time.Time
	EndDate     time.Time
	RawStatus   RawStatus
	DocumentRef sql.NullString // reference to the uploaded agreement, if any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Evaluate computes the contract's effective status at the given instant.
// It is pure and never fails: a corrupt date range (end before start) degrades
// to StatusExpired and sets integrityWarn so callers can log a data-integrity
// warning instead of crashing on bad historical rows.
//
// A raw BREACHED flag wins over everything, including dates far from expiry.
// The exact end instant no longer protects: now == EndDate reports EXPIRED.
func Evaluate(c *Contract, now time.Time) (status EffectiveStatus, integrityWarn bool) {
	switch c.RawStatus {
	case RawBreached:
		return StatusBreached, false
	case RawSuperseded, RawClosed:
		return StatusExpired, false
	}
	if c.EndDate.Before(c.StartDate) {
		return StatusExpired, true
	}
	if !now.Before(c.EndDate) {
		return StatusExpired, false
	}
	if c.EndDate.Sub(now) <= ExpiringWindow {
		return StatusExpiring, false
	}
	return StatusActive, false
}

// Protects reports whether the contract still has a live protection window,
// i.e. evaluates to ACTIVE or EXPIRING.
func Protects(c *Contract, now time.Time) bool {
	s, _ := Evaluate(c, now)
	return s == StatusActive || s == StatusExpiring
}

// Covers reports whether a transaction date falls inside the contract's
// protection period, both bounds inclusive.
func (c *Contract) Covers(date time.Time) bool {
	return !date.Before(c.StartDate) && !date.After(c.EndDate)
}
