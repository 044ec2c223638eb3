package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repguard/internal/domain/contract"

	"github.com/google/uuid"
)

// Custom errors specific to the contract repository.
var ErrContractNotFound = fmt.Errorf("contract not found")

type PostgresContractRepository struct {
	db *sql.DB
}

func NewPostgresContractRepository(db *sql.DB) *PostgresContractRepository {
	return &PostgresContractRepository{db: db}
}

const contractColumns = `id, agent_id, client_id, representation_type, start_date, end_date, raw_status, document_ref, created_at, updated_at`

func scanContract(row interface{ Scan(...any) error }) (*contract.Contract, error) {
	c := &contract.Contract{}
	err := row.Scan(&c.ID, &c.AgentID, &c.ClientID, &c.Type, &c.StartDate, &c.EndDate,
		&c.RawStatus, &c.DocumentRef, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanContracts(rows *sql.Rows) ([]*contract.Contract, error) {
	contracts := make([]*contract.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning contract row: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contract rows: %w", err)
	}
	return contracts, nil
}

func (r *PostgresContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	query := `INSERT INTO contracts (id, agent_id, client_id, representation_type, start_date, end_date, raw_status, document_ref)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.AgentID, c.ClientID, c.Type,
		c.StartDate, c.EndDate, c.RawStatus, c.DocumentRef).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating contract: %w", err)
	}
	return nil
}

func (r *PostgresContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("error getting contract by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresContractRepository) Update(ctx context.Context, c *contract.Contract) error {
	query := `UPDATE contracts
               SET end_date = $1, raw_status = $2, document_ref = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, c.EndDate, c.RawStatus, c.DocumentRef, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrContractNotFound
		}
		return fmt.Errorf("error updating contract: %w", err)
	}
	return nil
}

// Supersede marks the old contract SUPERSEDED and inserts its successor in a
// single transaction, so a crash between the two cannot strand the renewal.
func (r *PostgresContractRepository) Supersede(ctx context.Context, old *contract.Contract, successor *contract.Contract) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for supersede: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	res, err := txn.ExecContext(ctx,
		`UPDATE contracts SET raw_status = $1, updated_at = NOW() WHERE id = $2 AND raw_status = $3`,
		contract.RawSuperseded, old.ID, contract.RawActive)
	if err != nil {
		return fmt.Errorf("error superseding contract %s: %w", old.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking supersede result: %w", err)
	}
	if affected == 0 {
		return ErrContractNotFound
	}

	err = txn.QueryRowContext(ctx,
		`INSERT INTO contracts (id, agent_id, client_id, representation_type, start_date, end_date, raw_status, document_ref)
          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
          RETURNING created_at, updated_at`,
		successor.ID, successor.AgentID, successor.ClientID, successor.Type,
		successor.StartDate, successor.EndDate, successor.RawStatus, successor.DocumentRef,
	).Scan(&successor.CreatedAt, &successor.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating successor contract: %w", err)
	}

	old.RawStatus = contract.RawSuperseded
	return txn.Commit()
}

func (r *PostgresContractRepository) ListActiveByAgent(ctx context.Context, agentID uuid.UUID) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
               WHERE agent_id = $1 AND raw_status = $2 ORDER BY end_date ASC`
	rows, err := r.db.QueryContext(ctx, query, agentID, contract.RawActive)
	if err != nil {
		return nil, fmt.Errorf("error listing active contracts by agent: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func (r *PostgresContractRepository) ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
               WHERE client_id = $1 AND raw_status = $2 ORDER BY start_date ASC`
	rows, err := r.db.QueryContext(ctx, query, clientID, contract.RawActive)
	if err != nil {
		return nil, fmt.Errorf("error listing active contracts by client: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func (r *PostgresContractRepository) ListExpiringWithin(ctx context.Context, agentID uuid.UUID, from, until time.Time) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
               WHERE agent_id = $1 AND raw_status = $2 AND end_date > $3 AND end_date <= $4
               ORDER BY end_date ASC`
	rows, err := r.db.QueryContext(ctx, query, agentID, contract.RawActive, from, until)
	if err != nil {
		return nil, fmt.Errorf("error listing expiring contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func (r *PostgresContractRepository) ListActive(ctx context.Context) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
               WHERE raw_status = $1 ORDER BY agent_id, end_date ASC`
	rows, err := r.db.QueryContext(ctx, query, contract.RawActive)
	if err != nil {
		return nil, fmt.Errorf("error listing active contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}
