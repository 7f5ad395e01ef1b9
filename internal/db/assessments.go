package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Assessment item types
const (
	ItemTypeStrength      = "strength"
	ItemTypeGrowthArea    = "growth_area"
	ItemTypeHiddenTalent  = "hidden_talent"
	ItemTypeRoleReadiness = "role_readiness"
)

// SkillsAssessment is one AI-generated skills analysis for a user in a cycle.
// The full request and response payloads are kept for audit.
type SkillsAssessment struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	CycleID     uuid.UUID        `json:"evaluation_cycle_id"`
	Status      string           `json:"status"`
	RawRequest  json.RawMessage  `json:"raw_request,omitempty"`
	RawResponse json.RawMessage  `json:"raw_response,omitempty"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	Items       []AssessmentItem `json:"items,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// AssessmentItem is one typed insight extracted from an assessment response
type AssessmentItem struct {
	ID                  uuid.UUID       `json:"id"`
	SkillsAssessmentID  uuid.UUID       `json:"skills_assessment_id"`
	ItemType            string          `json:"item_type"`
	Label               *string         `json:"label,omitempty"`
	Score               *float64        `json:"score,omitempty"`
	GapScore            *float64        `json:"gap_score,omitempty"`
	Priority            *string         `json:"priority,omitempty"`
	ReadinessPercentage *float64        `json:"readiness_percentage,omitempty"`
	Evidence            *string         `json:"evidence,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

// SkillsAssessmentInput holds the parent row fields for a new assessment
type SkillsAssessmentInput struct {
	UserID      uuid.UUID
	CycleID     uuid.UUID
	Status      string
	RawRequest  any
	RawResponse any
	ProcessedAt time.Time
}

// AssessmentItemInput holds the fields for one assessment item
type AssessmentItemInput struct {
	ItemType            string
	Label               *string
	Score               *float64
	GapScore            *float64
	Priority            *string
	ReadinessPercentage *float64
	Evidence            *string
	Metadata            any
}

// -----------------------------------------------------------------------------
// Skills Assessment Methods
// -----------------------------------------------------------------------------

// SaveGeneratedAssessment persists the assessment, its items, and the audit
// row update in one transaction
func (db *DB) SaveGeneratedAssessment(ctx context.Context, input *SkillsAssessmentInput, items []AssessmentItemInput, auditID uuid.UUID, audit *AICallUpdate) (*SkillsAssessment, error) {
	requestJSON, err := json.Marshal(input.RawRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw request: %w", err)
	}
	responseJSON, err := json.Marshal(input.RawResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw response: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			// Log rollback error but don't overwrite main error
			_ = rErr
		}
	}()

	var a SkillsAssessment
	err = tx.QueryRow(ctx,
		`INSERT INTO skills_assessments (user_id, evaluation_cycle_id, status,
		        raw_request, raw_response, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, evaluation_cycle_id, status, raw_request,
		           raw_response, processed_at, created_at`,
		input.UserID, input.CycleID, input.Status, requestJSON, responseJSON,
		input.ProcessedAt,
	).Scan(&a.ID, &a.UserID, &a.CycleID, &a.Status, &a.RawRequest, &a.RawResponse,
		&a.ProcessedAt, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create skills assessment: %w", err)
	}

	for _, itemInput := range items {
		var metadataJSON []byte
		if itemInput.Metadata != nil {
			metadataJSON, err = json.Marshal(itemInput.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal item metadata: %w", err)
			}
		}

		var item AssessmentItem
		err = tx.QueryRow(ctx,
			`INSERT INTO skills_assessment_items (skills_assessment_id, item_type,
			        label, score, gap_score, priority, readiness_percentage,
			        evidence, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, skills_assessment_id, item_type, label, score,
			           gap_score, priority, readiness_percentage, evidence, metadata`,
			a.ID, itemInput.ItemType, itemInput.Label, itemInput.Score,
			itemInput.GapScore, itemInput.Priority, itemInput.ReadinessPercentage,
			itemInput.Evidence, metadataJSON,
		).Scan(&item.ID, &item.SkillsAssessmentID, &item.ItemType, &item.Label,
			&item.Score, &item.GapScore, &item.Priority, &item.ReadinessPercentage,
			&item.Evidence, &item.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to create assessment item: %w", err)
		}
		a.Items = append(a.Items, item)
	}

	if audit != nil {
		if audit.SkillsAssessmentID == nil {
			audit.SkillsAssessmentID = &a.ID
		}
		if err := db.updateAICall(ctx, tx, auditID, audit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &a, nil
}

// GetAssessment retrieves an assessment by ID, optionally with items
func (db *DB) GetAssessment(ctx context.Context, id uuid.UUID, loadItems bool) (*SkillsAssessment, error) {
	var a SkillsAssessment
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, evaluation_cycle_id, status, raw_request,
		        raw_response, processed_at, created_at
		 FROM skills_assessments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.UserID, &a.CycleID, &a.Status, &a.RawRequest, &a.RawResponse,
		&a.ProcessedAt, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get skills assessment: %w", err)
	}

	if loadItems {
		if err := db.loadItemsForAssessment(ctx, &a); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// GetLatestAssessment retrieves the most recent assessment for a user
func (db *DB) GetLatestAssessment(ctx context.Context, userID uuid.UUID, loadItems bool) (*SkillsAssessment, error) {
	var a SkillsAssessment
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, evaluation_cycle_id, status, raw_request,
		        raw_response, processed_at, created_at
		 FROM skills_assessments WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&a.ID, &a.UserID, &a.CycleID, &a.Status, &a.RawRequest, &a.RawResponse,
		&a.ProcessedAt, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest skills assessment: %w", err)
	}

	if loadItems {
		if err := db.loadItemsForAssessment(ctx, &a); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (db *DB) loadItemsForAssessment(ctx context.Context, a *SkillsAssessment) error {
	rows, err := db.pool.Query(ctx,
		`SELECT id, skills_assessment_id, item_type, label, score, gap_score,
		        priority, readiness_percentage, evidence, metadata
		 FROM skills_assessment_items WHERE skills_assessment_id = $1`,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get assessment items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item AssessmentItem
		if err := rows.Scan(&item.ID, &item.SkillsAssessmentID, &item.ItemType,
			&item.Label, &item.Score, &item.GapScore, &item.Priority,
			&item.ReadinessPercentage, &item.Evidence, &item.Metadata); err != nil {
			return fmt.Errorf("failed to scan assessment item: %w", err)
		}
		a.Items = append(a.Items, item)
	}
	return nil
}
