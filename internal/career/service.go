// Package career orchestrates AI career path generation and the accept
// workflow: one accepted path per user, everything else discarded.
package career

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmatsumoto/feedback360/internal/aiclient"
	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
)

// Store is the persistence surface the career service depends on.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetRole(ctx context.Context, id uuid.UUID) (*db.Role, error)
	ListActiveRoles(ctx context.Context) ([]db.Role, error)
	GetSkillsByNames(ctx context.Context, names []string) ([]db.Skill, error)
	GetAssessment(ctx context.Context, id uuid.UUID, loadItems bool) (*db.SkillsAssessment, error)
	GetLatestAssessment(ctx context.Context, userID uuid.UUID, loadItems bool) (*db.SkillsAssessment, error)
	CreateAICall(ctx context.Context, input *db.AICallInput) (*db.AICall, error)
	UpdateAICall(ctx context.Context, id uuid.UUID, update *db.AICallUpdate) error
	SaveGeneratedPaths(ctx context.Context, paths []db.CareerPathInput, auditID uuid.UUID, audit *db.AICallUpdate) ([]db.CareerPath, error)
	GetCareerPath(ctx context.Context, id uuid.UUID, loadSteps bool) (*db.CareerPath, error)
	ListCareerPaths(ctx context.Context, userID uuid.UUID, status string) ([]db.CareerPath, error)
	AcceptCareerPath(ctx context.Context, pathID, userID uuid.UUID) (*db.CareerPath, error)
}

// PathGenerator calls the external career path service.
type PathGenerator interface {
	GenerateCareerPaths(ctx context.Context, req *aiclient.CareerPathRequest) (*aiclient.CareerPathResponse, error)
}

// Service coordinates career path generation, listing and acceptance.
type Service struct {
	store    Store
	paths    PathGenerator
	classify ActionClassifier
	now      func() time.Time
}

// NewService creates a career service with the default action classifier.
func NewService(store Store, paths PathGenerator) *Service {
	return &Service{
		store:    store,
		paths:    paths,
		classify: ClassifyAction,
		now:      time.Now,
	}
}

// GenerateRequest holds the inputs for career path generation. A nil
// AssessmentID means "use the user's latest assessment".
type GenerateRequest struct {
	UserID           uuid.UUID
	AssessmentID     *uuid.UUID
	CareerInterests  []string
	TimeHorizonYears int
}

// GeneratePaths calls the career path service with the user's assessment and
// the organization structure, then persists the returned paths with their
// steps and classified development actions in one transaction.
func (s *Service) GeneratePaths(ctx context.Context, req *GenerateRequest) ([]db.CareerPath, error) {
	log.Printf("generating career paths for user %s", req.UserID)

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user %s not found", req.UserID)
	}

	// The assessment and the organization structure are independent lookups
	var (
		assessment *db.SkillsAssessment
		roles      []db.Role
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assessment, err = s.resolveAssessment(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = s.store.ListActiveRoles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roleByName := make(map[string]db.Role, len(roles))
	orgStructure := make([]aiclient.OrganizationRole, 0, len(roles))
	for _, r := range roles {
		roleByName[r.Name] = r
		orgStructure = append(orgStructure, aiclient.OrganizationRole{
			RoleID:         r.ID.String(),
			RoleName:       r.Name,
			JobFamily:      r.JobFamily,
			SeniorityLevel: r.SeniorityLevel,
		})
	}

	position := "Unknown"
	if user.RoleID != nil {
		role, err := s.store.GetRole(ctx, *user.RoleID)
		if err != nil {
			return nil, err
		}
		if role != nil {
			position = role.Name
		}
	}

	horizon := req.TimeHorizonYears
	if horizon == 0 {
		horizon = 3
	}

	aiReq := &aiclient.CareerPathRequest{
		Skills: aiclient.SkillsContext{
			AssessmentID:     externalAssessmentID(assessment),
			CareerInterests:  req.CareerInterests,
			TimeHorizonYears: horizon,
		},
		Profile: aiclient.ProfileContext{
			UserID:                user.ID.String(),
			CurrentPosition:       position,
			OrganizationStructure: orgStructure,
		},
	}

	audit, err := s.store.CreateAICall(ctx, &db.AICallInput{
		ServiceName:        db.ServiceCareerPaths,
		UserID:             &req.UserID,
		SkillsAssessmentID: &assessment.ID,
		RequestPayload:     aiReq,
	})
	if err != nil {
		return nil, err
	}

	started := s.now()
	resp, callErr := s.paths.GenerateCareerPaths(ctx, aiReq)
	latency := int(s.now().Sub(started).Milliseconds())

	if callErr != nil {
		s.recordFailure(ctx, audit.ID, callErr, latency)
		return nil, apperrors.ExternalService("career path", callErr)
	}

	inputs, err := s.mapGeneratedPaths(ctx, req.UserID, assessment.ID, resp, roleByName)
	if err != nil {
		return nil, err
	}

	created, err := s.store.SaveGeneratedPaths(ctx, inputs, audit.ID, &db.AICallUpdate{
		Status:          db.AICallStatusSuccess,
		ResponsePayload: resp,
		LatencyMs:       &latency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save career paths: %w", err)
	}

	log.Printf("saved %d career paths for user %s (latency %dms)", len(created), req.UserID, latency)
	return created, nil
}

// AcceptPath marks one proposed path accepted and discards the user's other
// proposed or accepted paths atomically.
func (s *Service) AcceptPath(ctx context.Context, pathID, userID uuid.UUID) (*db.CareerPath, error) {
	path, err := s.store.GetCareerPath(ctx, pathID, false)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, apperrors.NotFound("career path %s not found", pathID)
	}
	if path.UserID != userID {
		return nil, apperrors.Validation("career path %s does not belong to user %s", pathID, userID)
	}
	// Re-accepting the current accepted path is a no-op, not an error
	if path.Status != db.PathStatusProposed && path.Status != db.PathStatusAccepted {
		return nil, apperrors.Conflict("cannot accept career path in status %s", path.Status)
	}

	accepted, err := s.store.AcceptCareerPath(ctx, pathID, userID)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		return nil, apperrors.NotFound("career path %s not found", pathID)
	}

	log.Printf("user %s accepted career path %s (%s)", userID, accepted.ID, accepted.PathName)
	return accepted, nil
}

// ListPaths retrieves a user's career paths, optionally filtered by status.
func (s *Service) ListPaths(ctx context.Context, userID uuid.UUID, status string) ([]db.CareerPath, error) {
	if status != "" && !validPathStatus(status) {
		return nil, apperrors.Validation("invalid career path status: %s", status)
	}
	return s.store.ListCareerPaths(ctx, userID, status)
}

// GetPathDetail retrieves a path with its steps and development actions.
func (s *Service) GetPathDetail(ctx context.Context, pathID uuid.UUID) (*db.CareerPath, error) {
	path, err := s.store.GetCareerPath(ctx, pathID, true)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, apperrors.NotFound("career path %s not found", pathID)
	}
	return path, nil
}

func (s *Service) resolveAssessment(ctx context.Context, req *GenerateRequest) (*db.SkillsAssessment, error) {
	if req.AssessmentID != nil {
		a, err := s.store.GetAssessment(ctx, *req.AssessmentID, false)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, apperrors.NotFound("skills assessment %s not found", *req.AssessmentID)
		}
		if a.UserID != req.UserID {
			return nil, apperrors.Validation(
				"skills assessment %s does not belong to user %s", a.ID, req.UserID)
		}
		return a, nil
	}

	a, err := s.store.GetLatestAssessment(ctx, req.UserID, false)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFound(
			"no skills assessment found for user %s; generate one first", req.UserID)
	}
	return a, nil
}

// mapGeneratedPaths converts the AI response into storable inputs. Target
// roles and competency skills are resolved by exact name; unknown names map
// to nil references rather than failing ingestion.
func (s *Service) mapGeneratedPaths(ctx context.Context, userID, assessmentID uuid.UUID, resp *aiclient.CareerPathResponse, roleByName map[string]db.Role) ([]db.CareerPathInput, error) {
	var skillNames []string
	seen := map[string]bool{}
	for _, path := range resp.GeneratedPaths {
		for _, step := range path.Steps {
			for _, comp := range step.RequiredCompetencies {
				if !seen[comp.Name] {
					seen[comp.Name] = true
					skillNames = append(skillNames, comp.Name)
				}
			}
		}
	}

	skillByName := map[string]db.Skill{}
	if len(skillNames) > 0 {
		skills, err := s.store.GetSkillsByNames(ctx, skillNames)
		if err != nil {
			return nil, err
		}
		for _, sk := range skills {
			skillByName[sk.Name] = sk
		}
	}

	inputs := make([]db.CareerPathInput, 0, len(resp.GeneratedPaths))
	for _, path := range resp.GeneratedPaths {
		input := db.CareerPathInput{
			UserID:              userID,
			SkillsAssessmentID:  assessmentID,
			PathName:            path.PathName,
			Recommended:         path.Recommended,
			FeasibilityScore:    path.FeasibilityScore,
			TotalDurationMonths: path.TotalDurationMonths,
		}

		for _, step := range path.Steps {
			stepInput := db.CareerPathStepInput{
				StepNumber:     step.StepNumber,
				Description:    step.StepName,
				DurationMonths: step.DurationMonths,
			}
			if role, ok := roleByName[step.TargetRole]; ok {
				roleID := role.ID
				stepInput.TargetRoleID = &roleID
			}

			for _, comp := range step.RequiredCompetencies {
				var skillID *uuid.UUID
				if sk, ok := skillByName[comp.Name]; ok {
					id := sk.ID
					skillID = &id
				}
				for _, action := range comp.DevelopmentActions {
					stepInput.Actions = append(stepInput.Actions, db.DevelopmentActionInput{
						SkillID:    skillID,
						ActionType: s.classify(action),
						Title:      action,
					})
				}
			}
			input.Steps = append(input.Steps, stepInput)
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (s *Service) recordFailure(ctx context.Context, auditID uuid.UUID, callErr error, latency int) {
	status := db.AICallStatusError
	if errors.Is(callErr, context.DeadlineExceeded) {
		status = db.AICallStatusTimeout
	}
	msg := callErr.Error()
	if err := s.store.UpdateAICall(ctx, auditID, &db.AICallUpdate{
		Status:       status,
		ErrorMessage: &msg,
		LatencyMs:    &latency,
	}); err != nil {
		log.Printf("failed to record AI call failure for %s: %v", auditID, err)
	}
}

// externalAssessmentID prefers the service-issued assessment ID captured in
// the raw response; the database ID is the fallback.
func externalAssessmentID(a *db.SkillsAssessment) string {
	if len(a.RawResponse) > 0 {
		var partial struct {
			AssessmentID string `json:"assessment_id"`
		}
		if err := json.Unmarshal(a.RawResponse, &partial); err == nil && partial.AssessmentID != "" {
			return partial.AssessmentID
		}
	}
	return a.ID.String()
}

func validPathStatus(status string) bool {
	switch status {
	case db.PathStatusProposed, db.PathStatusAccepted, db.PathStatusInProgress,
		db.PathStatusCompleted, db.PathStatusDiscarded:
		return true
	}
	return false
}
