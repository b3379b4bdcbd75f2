package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS edgeforge_checkpoints (
	execution_id TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	state        TEXT NOT NULL,
	data         JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps one row per execution in edgeforge_checkpoints.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the checkpoint table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return nil
}

// Save upserts rec.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	data := rec.Data
	if data == nil {
		data = []byte("null")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO edgeforge_checkpoints (execution_id, status, state, data, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (execution_id) DO UPDATE
SET status = EXCLUDED.status, state = EXCLUDED.state, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		rec.ExecutionID, string(rec.Status), rec.State, string(data), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", rec.ExecutionID, err)
	}
	return nil
}

// Load reads the checkpoint of one execution.
func (s *PostgresStore) Load(ctx context.Context, executionID string) (*Record, error) {
	row := s.db.QueryRow(ctx, `SELECT execution_id, status, state, data, updated_at
FROM edgeforge_checkpoints WHERE execution_id = $1`, executionID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, executionID)
		}
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", executionID, err)
	}
	return rec, nil
}

// List returns all checkpoints, most recently updated first.
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT execution_id, status, state, data, updated_at
FROM edgeforge_checkpoints ORDER BY updated_at DESC, execution_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec    Record
		status string
		data   []byte
	)
	if err := row.Scan(&rec.ExecutionID, &status, &rec.State, &data, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.Data = data
	return &rec, nil
}
