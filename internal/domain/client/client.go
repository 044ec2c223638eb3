package client

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Client is a represented party and the recipient of contract reminders.
type Client struct {
	ID             uuid.UUID
	AgentID        uuid.UUID
	Name           string
	Email          sql.NullString
	Phone          sql.NullString
	TelegramChatID sql.NullInt64 // chat for in-app delivery, when linked
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
