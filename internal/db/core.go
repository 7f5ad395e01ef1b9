package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is an employee participating in feedback cycles
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	RoleID    *uuid.UUID `json:"role_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Role is a position in the organization structure
type Role struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	JobFamily      *string   `json:"job_family,omitempty"`
	SeniorityLevel *string   `json:"seniority_level,omitempty"`
	Active         bool      `json:"active"`
}

// Skill is a competency in the skills catalog
type Skill struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category *string   `json:"category,omitempty"`
}

// -----------------------------------------------------------------------------
// Core Lookup Methods
// -----------------------------------------------------------------------------

// GetUser retrieves a user by ID
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, role_id, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.RoleID, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetRole retrieves a role by ID
func (db *DB) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	var r Role
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, job_family, seniority_level, active FROM roles WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Name, &r.JobFamily, &r.SeniorityLevel, &r.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}

// ListActiveRoles retrieves every active role
func (db *DB) ListActiveRoles(ctx context.Context) ([]Role, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, job_family, seniority_level, active
		 FROM roles WHERE active ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.JobFamily, &r.SeniorityLevel, &r.Active); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// GetSkillsByNames batch-retrieves skills by exact name match
func (db *DB) GetSkillsByNames(ctx context.Context, names []string) ([]Skill, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, category FROM skills WHERE name = ANY($1)`,
		names,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get skills by names: %w", err)
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, nil
}

// GetSkillsByIDs batch-retrieves skills by ID
func (db *DB) GetSkillsByIDs(ctx context.Context, ids []uuid.UUID) ([]Skill, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, category FROM skills WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get skills by ids: %w", err)
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, nil
}
