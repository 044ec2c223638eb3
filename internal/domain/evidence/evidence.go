package evidence

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionSide is the side of a transaction an evidence record reports.
type TransactionSide string

const (
	SidePurchase TransactionSide = "PURCHASE"
	SideSale     TransactionSide = "SALE"
)

// Record is one activity-evidence item from the external feed: a public
// record suggesting the client transacted on a property. The subject has
// already been matched to a client by the provider. TransactingAgentID is
// the provider's identity for the agent on the deal; empty means the
// transaction looks unrepresented.
type Record struct {
	TransactionRef     string
	ClientID           uuid.UUID
	TransactionDate    time.Time
	TransactingAgentID string
	PropertyRef        string
	Side               TransactionSide
}

// Feed supplies evidence records on some cadence. Order is not guaranteed
// and duplicates are possible; downstream dedup handles both.
type Feed interface {
	Pull(ctx context.Context) ([]Record, error)
}
