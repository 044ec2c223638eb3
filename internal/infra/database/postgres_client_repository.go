package database

import (
	"context"
	"database/sql"
	"fmt"

	"repguard/internal/domain/client"

	"github.com/google/uuid"
)

// Custom errors specific to the client repository.
var ErrClientNotFound = fmt.Errorf("client not found")

type PostgresClientRepository struct {
	db *sql.DB
}

func NewPostgresClientRepository(db *sql.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

const clientColumns = `id, agent_id, name, email, phone, telegram_chat_id, is_active, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (*client.Client, error) {
	c := &client.Client{}
	err := row.Scan(&c.ID, &c.AgentID, &c.Name, &c.Email, &c.Phone,
		&c.TelegramChatID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresClientRepository) Create(ctx context.Context, c *client.Client) error {
	query := `INSERT INTO clients (id, agent_id, name, email, phone, telegram_chat_id, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.AgentID, c.Name, c.Email,
		c.Phone, c.TelegramChatID, c.IsActive).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("error getting client by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresClientRepository) Update(ctx context.Context, c *client.Client) error {
	query := `UPDATE clients
               SET name = $1, email = $2, phone = $3, telegram_chat_id = $4, is_active = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, c.Name, c.Email, c.Phone,
		c.TelegramChatID, c.IsActive, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrClientNotFound
		}
		return fmt.Errorf("error updating client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*client.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE agent_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("error listing clients by agent: %w", err)
	}
	defer rows.Close()

	clients := make([]*client.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning client row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client rows: %w", err)
	}
	return clients, nil
}
