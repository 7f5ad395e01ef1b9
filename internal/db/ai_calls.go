package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AI call statuses
const (
	AICallStatusPending = "pending"
	AICallStatusSuccess = "success"
	AICallStatusError   = "error"
	AICallStatusTimeout = "timeout"
)

// AI service names
const (
	ServiceSkillsAssessment = "skills_assessment"
	ServiceCareerPaths      = "career_paths"
)

// AICall is the audit record for one outbound AI service call. A row is
// written before the call and updated after it, even on failure.
type AICall struct {
	ID                 uuid.UUID       `json:"id"`
	ServiceName        string          `json:"service_name"`
	UserID             *uuid.UUID      `json:"user_id,omitempty"`
	CycleID            *uuid.UUID      `json:"evaluation_cycle_id,omitempty"`
	SkillsAssessmentID *uuid.UUID      `json:"skills_assessment_id,omitempty"`
	CareerPathID       *uuid.UUID      `json:"career_path_id,omitempty"`
	RequestPayload     json.RawMessage `json:"request_payload"`
	ResponsePayload    json.RawMessage `json:"response_payload,omitempty"`
	Status             string          `json:"status"`
	ErrorMessage       *string         `json:"error_message,omitempty"`
	LatencyMs          *int            `json:"latency_ms,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// AICallInput holds the fields for the pre-call audit row
type AICallInput struct {
	ServiceName        string
	UserID             *uuid.UUID
	CycleID            *uuid.UUID
	SkillsAssessmentID *uuid.UUID
	RequestPayload     any
}

// AICallUpdate holds the post-call outcome fields
type AICallUpdate struct {
	Status             string
	ResponsePayload    any
	ErrorMessage       *string
	LatencyMs          *int
	SkillsAssessmentID *uuid.UUID
	CareerPathID       *uuid.UUID
}

// -----------------------------------------------------------------------------
// AI Call Audit Methods
// -----------------------------------------------------------------------------

// CreateAICall writes the pre-call audit row with status 'pending'
func (db *DB) CreateAICall(ctx context.Context, input *AICallInput) (*AICall, error) {
	requestJSON, err := json.Marshal(input.RequestPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var call AICall
	err = db.pool.QueryRow(ctx,
		`INSERT INTO ai_calls (service_name, user_id, evaluation_cycle_id,
		        skills_assessment_id, request_payload, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, service_name, user_id, evaluation_cycle_id,
		           skills_assessment_id, career_path_id, request_payload,
		           response_payload, status, error_message, latency_ms, created_at`,
		input.ServiceName, input.UserID, input.CycleID, input.SkillsAssessmentID,
		requestJSON, AICallStatusPending,
	).Scan(&call.ID, &call.ServiceName, &call.UserID, &call.CycleID,
		&call.SkillsAssessmentID, &call.CareerPathID, &call.RequestPayload,
		&call.ResponsePayload, &call.Status, &call.ErrorMessage, &call.LatencyMs,
		&call.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI call record: %w", err)
	}
	return &call, nil
}

// UpdateAICall records the call outcome on the audit row
func (db *DB) UpdateAICall(ctx context.Context, id uuid.UUID, update *AICallUpdate) error {
	return db.updateAICall(ctx, db.pool, id, update)
}

// pgxExecer is satisfied by both *pgxpool.Pool and pgx.Tx, so the audit
// update can run standalone or inside an ingestion transaction.
type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (db *DB) updateAICall(ctx context.Context, q pgxExecer, id uuid.UUID, update *AICallUpdate) error {
	var responseJSON []byte
	if update.ResponsePayload != nil {
		var err error
		responseJSON, err = json.Marshal(update.ResponsePayload)
		if err != nil {
			return fmt.Errorf("failed to marshal response payload: %w", err)
		}
	}

	tag, err := q.Exec(ctx,
		`UPDATE ai_calls
		 SET status = $1,
		     response_payload = COALESCE($2, response_payload),
		     error_message = COALESCE($3, error_message),
		     latency_ms = COALESCE($4, latency_ms),
		     skills_assessment_id = COALESCE($5, skills_assessment_id),
		     career_path_id = COALESCE($6, career_path_id)
		 WHERE id = $7`,
		update.Status, responseJSON, update.ErrorMessage, update.LatencyMs,
		update.SkillsAssessmentID, update.CareerPathID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update AI call record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("AI call record not found: %s", id)
	}
	return nil
}

// GetAICall retrieves an audit record by ID
func (db *DB) GetAICall(ctx context.Context, id uuid.UUID) (*AICall, error) {
	var call AICall
	err := db.pool.QueryRow(ctx,
		`SELECT id, service_name, user_id, evaluation_cycle_id,
		        skills_assessment_id, career_path_id, request_payload,
		        response_payload, status, error_message, latency_ms, created_at
		 FROM ai_calls WHERE id = $1`,
		id,
	).Scan(&call.ID, &call.ServiceName, &call.UserID, &call.CycleID,
		&call.SkillsAssessmentID, &call.CareerPathID, &call.RequestPayload,
		&call.ResponsePayload, &call.Status, &call.ErrorMessage, &call.LatencyMs,
		&call.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get AI call record: %w", err)
	}
	return &call, nil
}

// ListAICalls retrieves recent audit records for a service
func (db *DB) ListAICalls(ctx context.Context, serviceName string, limit int) ([]AICall, error) {
	if limit == 0 {
		limit = 50
	}

	query := `SELECT id, service_name, user_id, evaluation_cycle_id,
	                 skills_assessment_id, career_path_id, request_payload,
	                 response_payload, status, error_message, latency_ms, created_at
	          FROM ai_calls`
	args := []any{}
	argNum := 1

	if serviceName != "" {
		query += fmt.Sprintf(" WHERE service_name = $%d", argNum)
		args = append(args, serviceName)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list AI call records: %w", err)
	}
	defer rows.Close()

	var calls []AICall
	for rows.Next() {
		var call AICall
		if err := rows.Scan(&call.ID, &call.ServiceName, &call.UserID, &call.CycleID,
			&call.SkillsAssessmentID, &call.CareerPathID, &call.RequestPayload,
			&call.ResponsePayload, &call.Status, &call.ErrorMessage, &call.LatencyMs,
			&call.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan AI call record: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}
