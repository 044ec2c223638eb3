package database

import (
	"context"
	"database/sql"
	"fmt"

	"repguard/internal/domain/alert"

	"github.com/google/uuid"
)

// Custom errors specific to the alert repository.
var ErrAlertNotFound = fmt.Errorf("alert not found")
var ErrDuplicateAlert = fmt.Errorf("unresolved alert with this dedup key already exists")

// alertsDedupIndex is the partial unique index guaranteeing at most one
// unresolved alert per dedup key. Concurrent raisers race on it instead of
// on a read-then-write check.
const alertsDedupIndex = "alerts_dedup_live_unique"

type PostgresAlertRepository struct {
	db *sql.DB
}

func NewPostgresAlertRepository(db *sql.DB) *PostgresAlertRepository {
	return &PostgresAlertRepository{db: db}
}

const alertColumns = `id, contract_id, agent_id, alert_type, severity, title, description, dedup_key, is_read, created_at, resolved_at`

func scanAlert(row interface{ Scan(...any) error }) (*alert.Alert, error) {
	a := &alert.Alert{}
	err := row.Scan(&a.ID, &a.ContractID, &a.AgentID, &a.Type, &a.Severity,
		&a.Title, &a.Description, &a.DedupKey, &a.IsRead, &a.CreatedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanAlerts(rows *sql.Rows) ([]*alert.Alert, error) {
	alerts := make([]*alert.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}
	return alerts, nil
}

func (r *PostgresAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	query := `INSERT INTO alerts (id, contract_id, agent_id, alert_type, severity, title, description, dedup_key, is_read, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.ContractID, a.AgentID, a.Type,
		a.Severity, a.Title, a.Description, a.DedupKey, a.IsRead, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, alertsDedupIndex) {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("error creating alert: %w", err)
	}
	return nil
}

func (r *PostgresAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("error getting alert by ID: %w", err)
	}
	return a, nil
}

func (r *PostgresAlertRepository) GetUnresolvedByDedupKey(ctx context.Context, dedupKey string) (*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE dedup_key = $1 AND resolved_at IS NULL`
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, dedupKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("error getting alert by dedup key: %w", err)
	}
	return a, nil
}

func (r *PostgresAlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	query := `UPDATE alerts SET is_read = $1, resolved_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, a.IsRead, a.ResolvedAt, a.ID)
	if err != nil {
		return fmt.Errorf("error updating alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking alert update result: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *PostgresAlertRepository) ListUnresolvedByAgent(ctx context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
               WHERE agent_id = $1 AND resolved_at IS NULL
               ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("error listing unresolved alerts by agent: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *PostgresAlertRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
               WHERE contract_id = $1
               ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts by contract: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (r *PostgresAlertRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*alert.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
               WHERE agent_id = $1
               ORDER BY is_read ASC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts by agent: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}
