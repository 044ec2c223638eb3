package client

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*Client, error)
}
