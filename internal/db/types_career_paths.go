package db

import (
	"time"

	"github.com/google/uuid"
)

// Career path statuses
const (
	PathStatusProposed   = "proposed"
	PathStatusAccepted   = "accepted"
	PathStatusInProgress = "in_progress"
	PathStatusCompleted  = "completed"
	PathStatusDiscarded  = "discarded"
)

// Development action types
const (
	ActionTypeCourse        = "course"
	ActionTypeProject       = "project"
	ActionTypeMentoring     = "mentoring"
	ActionTypeShadowing     = "shadowing"
	ActionTypeCertification = "certification"
	ActionTypeOther         = "other"
)

// CareerPath is one AI-generated progression plan for a user
type CareerPath struct {
	ID                  uuid.UUID        `json:"id"`
	UserID              uuid.UUID        `json:"user_id"`
	SkillsAssessmentID  uuid.UUID        `json:"skills_assessment_id"`
	PathName            string           `json:"path_name"`
	Recommended         bool             `json:"recommended"`
	FeasibilityScore    *float64         `json:"feasibility_score,omitempty"`
	TotalDurationMonths *int             `json:"total_duration_months,omitempty"`
	Status              string           `json:"status"`
	Steps               []CareerPathStep `json:"steps,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// CareerPathStep is one ordered stage of a career path
type CareerPathStep struct {
	ID             uuid.UUID           `json:"id"`
	CareerPathID   uuid.UUID           `json:"career_path_id"`
	StepNumber     int                 `json:"step_number"`
	TargetRoleID   *uuid.UUID          `json:"target_role_id,omitempty"`
	Description    string              `json:"description"`
	DurationMonths *int                `json:"duration_months,omitempty"`
	Actions        []DevelopmentAction `json:"development_actions,omitempty"`
}

// DevelopmentAction is one concrete activity attached to a path step
type DevelopmentAction struct {
	ID               uuid.UUID  `json:"id"`
	CareerPathStepID uuid.UUID  `json:"career_path_step_id"`
	SkillID          *uuid.UUID `json:"skill_id,omitempty"`
	ActionType       string     `json:"action_type"`
	Title            string     `json:"title"`
}

// CareerPathInput holds one path with its steps and actions for bulk creation
type CareerPathInput struct {
	UserID              uuid.UUID
	SkillsAssessmentID  uuid.UUID
	PathName            string
	Recommended         bool
	FeasibilityScore    *float64
	TotalDurationMonths *int
	Steps               []CareerPathStepInput
}

// CareerPathStepInput holds one step with its development actions
type CareerPathStepInput struct {
	StepNumber     int
	TargetRoleID   *uuid.UUID
	Description    string
	DurationMonths *int
	Actions        []DevelopmentActionInput
}

// DevelopmentActionInput holds one development action
type DevelopmentActionInput struct {
	SkillID    *uuid.UUID
	ActionType string
	Title      string
}
