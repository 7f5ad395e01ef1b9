package db

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation represents one evaluator's 360° feedback about a user
type Evaluation struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	CycleID      uuid.UUID         `json:"evaluation_cycle_id"`
	EvaluatorID  uuid.UUID         `json:"evaluator_id"`
	Relationship string            `json:"evaluator_relationship"`
	Status       string            `json:"status"`
	SubmittedAt  *time.Time        `json:"submitted_at,omitempty"`
	Scores       []CompetencyScore `json:"competency_scores,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// CompetencyScore is a single skill rating belonging to an evaluation
type CompetencyScore struct {
	ID           uuid.UUID `json:"id"`
	EvaluationID uuid.UUID `json:"evaluation_id"`
	SkillID      uuid.UUID `json:"skill_id"`
	Score        float64   `json:"score"`
	Comments     *string   `json:"comments,omitempty"`
}

// EvaluationInput holds the fields for creating an evaluation with its scores
type EvaluationInput struct {
	UserID       uuid.UUID
	CycleID      uuid.UUID
	EvaluatorID  uuid.UUID
	Relationship string
	Status       string
	SubmittedAt  *time.Time
	Scores       []CompetencyScoreInput
}

// CompetencyScoreInput holds the fields for one competency score
type CompetencyScoreInput struct {
	SkillID  uuid.UUID
	Score    float64
	Comments *string
}

// EvaluationFilters holds optional filters for listing evaluations
type EvaluationFilters struct {
	UserID      *uuid.UUID
	EvaluatorID *uuid.UUID
	CycleID     *uuid.UUID
	Status      string
	Limit       int
	Offset      int
}
