package db

import (
	"time"

	"github.com/google/uuid"
)

// Evaluation cycle statuses
const (
	CycleStatusDraft  = "draft"
	CycleStatusActive = "active"
	CycleStatusClosed = "closed"
)

// EvaluationCycle represents a time-boxed 360° feedback campaign
type EvaluationCycle struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsActive reports whether evaluations may be created in this cycle
func (c *EvaluationCycle) IsActive() bool {
	return c.Status == CycleStatusActive
}

// EvaluationCycleInput holds the fields for creating a cycle
type EvaluationCycleInput struct {
	Name        string
	Description *string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
}

// EvaluationCycleUpdate holds optional fields for a partial cycle update
type EvaluationCycleUpdate struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *string
}
