package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainEvidence "repguard/internal/domain/evidence"

	"github.com/google/uuid"
)

// HTTPFeed polls a JSON endpoint for activity-evidence records. The provider
// matches subjects to clients before records reach this feed; the engine
// only consumes the output shape.
type HTTPFeed struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPFeed(url, token string) *HTTPFeed {
	return &HTTPFeed{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type feedRecord struct {
	TransactionRef     string    `json:"transaction_ref"`
	ClientID           uuid.UUID `json:"client_id"`
	TransactionDate    time.Time `json:"transaction_date"`
	TransactingAgentID string    `json:"transacting_agent_id"`
	PropertyRef        string    `json:"property_ref"`
	Side               string    `json:"side"`
}

func (f *HTTPFeed) Pull(ctx context.Context) ([]domainEvidence.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building evidence feed request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error pulling evidence feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evidence feed returned status %d", resp.StatusCode)
	}

	var raw []feedRecord
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding evidence feed response: %w", err)
	}

	records := make([]domainEvidence.Record, 0, len(raw))
	for _, fr := range raw {
		records = append(records, domainEvidence.Record{
			TransactionRef:     fr.TransactionRef,
			ClientID:           fr.ClientID,
			TransactionDate:    fr.TransactionDate,
			TransactingAgentID: fr.TransactingAgentID,
			PropertyRef:        fr.PropertyRef,
			Side:               normalizeSide(fr.Side),
		})
	}
	return records, nil
}

func normalizeSide(s string) domainEvidence.TransactionSide {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PURCHASE", "BUY", "BOUGHT":
		return domainEvidence.SidePurchase
	case "SALE", "SELL", "SOLD":
		return domainEvidence.SideSale
	default:
		return domainEvidence.TransactionSide(strings.ToUpper(strings.TrimSpace(s)))
	}
}
