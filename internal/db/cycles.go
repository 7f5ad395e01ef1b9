package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Evaluation Cycle Methods
// -----------------------------------------------------------------------------

// CreateCycle creates a new evaluation cycle
func (db *DB) CreateCycle(ctx context.Context, input *EvaluationCycleInput) (*EvaluationCycle, error) {
	var c EvaluationCycle
	err := db.pool.QueryRow(ctx,
		`INSERT INTO evaluation_cycles (name, description, start_date, end_date, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, description, start_date, end_date, status, created_at, updated_at`,
		input.Name, input.Description, input.StartDate, input.EndDate, input.Status,
	).Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle: %w", err)
	}
	return &c, nil
}

// GetCycle retrieves an evaluation cycle by ID
func (db *DB) GetCycle(ctx context.Context, id uuid.UUID) (*EvaluationCycle, error) {
	var c EvaluationCycle
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, start_date, end_date, status, created_at, updated_at
		 FROM evaluation_cycles WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &c, nil
}

// ListCycles retrieves evaluation cycles, optionally filtered by status
func (db *DB) ListCycles(ctx context.Context, status string) ([]EvaluationCycle, error) {
	query := `SELECT id, name, description, start_date, end_date, status, created_at, updated_at
	          FROM evaluation_cycles`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY start_date DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []EvaluationCycle
	for rows.Next() {
		var c EvaluationCycle
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.StartDate, &c.EndDate,
			&c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}

// UpdateCycle applies a partial update to an evaluation cycle
func (db *DB) UpdateCycle(ctx context.Context, id uuid.UUID, update *EvaluationCycleUpdate) (*EvaluationCycle, error) {
	sets := []string{}
	args := []any{}
	argNum := 1

	if update.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argNum))
		args = append(args, *update.Name)
		argNum++
	}
	if update.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", argNum))
		args = append(args, *update.Description)
		argNum++
	}
	if update.StartDate != nil {
		sets = append(sets, fmt.Sprintf("start_date = $%d", argNum))
		args = append(args, *update.StartDate)
		argNum++
	}
	if update.EndDate != nil {
		sets = append(sets, fmt.Sprintf("end_date = $%d", argNum))
		args = append(args, *update.EndDate)
		argNum++
	}
	if update.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *update.Status)
		argNum++
	}

	if len(sets) == 0 {
		return db.GetCycle(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	query := fmt.Sprintf(
		`UPDATE evaluation_cycles SET %s WHERE id = $%d
		 RETURNING id, name, description, start_date, end_date, status, created_at, updated_at`,
		strings.Join(sets, ", "), argNum)
	args = append(args, id)

	var c EvaluationCycle
	err := db.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Description,
		&c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update cycle: %w", err)
	}
	return &c, nil
}
