package evaluation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
)

// CycleRequest holds the inputs for creating an evaluation cycle.
type CycleRequest struct {
	Name        string
	Description *string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
}

// CreateCycle validates and persists a new evaluation cycle. A zero status
// defaults to draft.
func (s *Service) CreateCycle(ctx context.Context, req *CycleRequest) (*db.EvaluationCycle, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, apperrors.Validation("end_date must be after start_date")
	}
	status := req.Status
	if status == "" {
		status = db.CycleStatusDraft
	}
	if !validCycleStatus(status) {
		return nil, apperrors.Validation("invalid cycle status: %s", status)
	}

	cycle, err := s.store.CreateCycle(ctx, &db.EvaluationCycleInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("created evaluation cycle %s (%s)", cycle.ID, cycle.Name)
	return cycle, nil
}

// GetCycle retrieves a cycle by ID.
func (s *Service) GetCycle(ctx context.Context, id uuid.UUID) (*db.EvaluationCycle, error) {
	cycle, err := s.store.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperrors.NotFound("evaluation cycle %s not found", id)
	}
	return cycle, nil
}

// ListCycles retrieves cycles, optionally filtered by status.
func (s *Service) ListCycles(ctx context.Context, status string) ([]db.EvaluationCycle, error) {
	if status != "" && !validCycleStatus(status) {
		return nil, apperrors.Validation("invalid cycle status: %s", status)
	}
	return s.store.ListCycles(ctx, status)
}

// UpdateCycle applies a partial update to a cycle.
func (s *Service) UpdateCycle(ctx context.Context, id uuid.UUID, update *db.EvaluationCycleUpdate) (*db.EvaluationCycle, error) {
	existing, err := s.store.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("evaluation cycle %s not found", id)
	}
	// Closed cycles are frozen. Reopening is not supported.
	if existing.Status == db.CycleStatusClosed {
		return nil, apperrors.Validation("cannot update a closed evaluation cycle")
	}

	if update.Status != nil && !validCycleStatus(*update.Status) {
		return nil, apperrors.Validation("invalid cycle status: %s", *update.Status)
	}

	start := existing.StartDate
	if update.StartDate != nil {
		start = *update.StartDate
	}
	end := existing.EndDate
	if update.EndDate != nil {
		end = *update.EndDate
	}
	if !end.After(start) {
		return nil, apperrors.Validation("end_date must be after start_date")
	}

	cycle, err := s.store.UpdateCycle(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperrors.NotFound("evaluation cycle %s not found", id)
	}
	return cycle, nil
}

func validCycleStatus(status string) bool {
	switch status {
	case db.CycleStatusDraft, db.CycleStatusActive, db.CycleStatusClosed:
		return true
	}
	return false
}
