// Package assessment orchestrates AI skills assessments: it assembles the
// evaluation payload from aggregated scores, calls the skills service with
// full audit logging, and ingests the response transactionally.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/aiclient"
	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/domain"
)

// Store is the persistence surface the assessment service depends on.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetRole(ctx context.Context, id uuid.UUID) (*db.Role, error)
	GetCycle(ctx context.Context, id uuid.UUID) (*db.EvaluationCycle, error)
	GetUserSkillScores(ctx context.Context, userID, cycleID uuid.UUID) ([]db.UserSkillScore, error)
	GetSkillsByIDs(ctx context.Context, ids []uuid.UUID) ([]db.Skill, error)
	CreateAICall(ctx context.Context, input *db.AICallInput) (*db.AICall, error)
	UpdateAICall(ctx context.Context, id uuid.UUID, update *db.AICallUpdate) error
	SaveGeneratedAssessment(ctx context.Context, input *db.SkillsAssessmentInput, items []db.AssessmentItemInput, auditID uuid.UUID, audit *db.AICallUpdate) (*db.SkillsAssessment, error)
	GetAssessment(ctx context.Context, id uuid.UUID, loadItems bool) (*db.SkillsAssessment, error)
	GetLatestAssessment(ctx context.Context, userID uuid.UUID, loadItems bool) (*db.SkillsAssessment, error)
}

// SkillsAssessor calls the external skills assessment service.
type SkillsAssessor interface {
	AssessSkills(ctx context.Context, req *aiclient.AssessmentRequest) (*aiclient.AssessmentResponse, error)
}

// Employment history is not modeled, so the payload carries a fixed
// experience estimate.
const defaultYearsExperience = 5

// Service coordinates skills assessment generation and retrieval.
type Service struct {
	store  Store
	skills SkillsAssessor
	now    func() time.Time
}

// NewService creates an assessment service.
func NewService(store Store, skills SkillsAssessor) *Service {
	return &Service{store: store, skills: skills, now: time.Now}
}

// GenerateAssessment builds the evaluation payload from the user's
// aggregated skill scores, calls the skills service, and persists the
// assessment with its extracted items. Every outbound call gets an audit
// record regardless of outcome.
func (s *Service) GenerateAssessment(ctx context.Context, userID, cycleID uuid.UUID) (*db.SkillsAssessment, error) {
	log.Printf("generating skills assessment for user %s in cycle %s", userID, cycleID)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user %s not found", userID)
	}

	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperrors.NotFound("evaluation cycle %s not found", cycleID)
	}

	scores, err := s.store.GetUserSkillScores(ctx, userID, cycleID)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, apperrors.Conflict(
			"no aggregated skill scores for user %s in cycle %s; process evaluations first", userID, cycleID)
	}

	req, err := s.buildAssessmentRequest(ctx, user, scores)
	if err != nil {
		return nil, err
	}

	audit, err := s.store.CreateAICall(ctx, &db.AICallInput{
		ServiceName:    db.ServiceSkillsAssessment,
		UserID:         &userID,
		CycleID:        &cycleID,
		RequestPayload: req,
	})
	if err != nil {
		return nil, err
	}

	started := s.now()
	resp, callErr := s.skills.AssessSkills(ctx, req)
	latency := int(s.now().Sub(started).Milliseconds())

	if callErr != nil {
		s.recordFailure(ctx, audit.ID, callErr, latency)
		return nil, apperrors.ExternalService("skills assessment", callErr)
	}

	items := extractItems(resp)
	saved, err := s.store.SaveGeneratedAssessment(ctx,
		&db.SkillsAssessmentInput{
			UserID:      userID,
			CycleID:     cycleID,
			Status:      "completed",
			RawRequest:  req,
			RawResponse: resp,
			ProcessedAt: s.now().UTC(),
		},
		items,
		audit.ID,
		&db.AICallUpdate{
			Status:          db.AICallStatusSuccess,
			ResponsePayload: resp,
			LatencyMs:       &latency,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save skills assessment: %w", err)
	}

	log.Printf("skills assessment %s saved with %d items (latency %dms)",
		saved.ID, len(saved.Items), latency)
	return saved, nil
}

// GetAssessment retrieves an assessment with its items.
func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*db.SkillsAssessment, error) {
	a, err := s.store.GetAssessment(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFound("skills assessment %s not found", id)
	}
	return a, nil
}

// GetLatestAssessment retrieves the user's most recent assessment with its
// items.
func (s *Service) GetLatestAssessment(ctx context.Context, userID uuid.UUID) (*db.SkillsAssessment, error) {
	a, err := s.store.GetLatestAssessment(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFound("no skills assessment found for user %s", userID)
	}
	return a, nil
}

// buildAssessmentRequest maps stored raw_stats back into the per-competency
// shape the skills service expects.
func (s *Service) buildAssessmentRequest(ctx context.Context, user *db.User, scores []db.UserSkillScore) (*aiclient.AssessmentRequest, error) {
	ids := make([]uuid.UUID, 0, len(scores))
	for _, sc := range scores {
		ids = append(ids, sc.SkillID)
	}
	skills, err := s.store.GetSkillsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[uuid.UUID]string, len(skills))
	for _, sk := range skills {
		nameByID[sk.ID] = sk.Name
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

	competencies := make([]aiclient.CompetencyData, 0, len(scores))
	for _, sc := range scores {
		var raw domain.RawStats
		if len(sc.RawStats) > 0 {
			if err := json.Unmarshal(sc.RawStats, &raw); err != nil {
				return nil, fmt.Errorf("failed to decode raw stats for skill %s: %w", sc.SkillID, err)
			}
		}
		name := nameByID[sc.SkillID]
		if name == "" {
			name = sc.SkillID.String()
		}
		competencies = append(competencies, aiclient.CompetencyData{
			Name:               name,
			SelfScore:          raw.SelfAvg,
			PeerScores:         raw.PeerScores,
			ManagerScore:       raw.ManagerAvg,
			DirectReportScores: raw.DirectReportScores,
		})
	}

	return &aiclient.AssessmentRequest{
		UserID:          user.ID.String(),
		EvaluationData:  aiclient.EvaluationData{Competencies: competencies},
		CurrentPosition: position,
		YearsExperience: defaultYearsExperience,
	}, nil
}

// recordFailure updates the audit row after a failed call. Audit write
// failures are logged, not surfaced; the call error is what the caller
// needs.
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

// extractItems flattens the assessment response into typed item rows. A
// role's readiness percentage arrives on a 0-100 scale and is normalized to
// a 0-1 score exactly once.
func extractItems(resp *aiclient.AssessmentResponse) []db.AssessmentItemInput {
	var items []db.AssessmentItemInput

	for _, st := range resp.SkillsProfile.Strengths {
		label := st.Skill
		item := db.AssessmentItemInput{
			ItemType: db.ItemTypeStrength,
			Label:    &label,
			Score:    st.Score,
			Evidence: st.Evidence,
		}
		if st.ProficiencyLevel != nil {
			item.Metadata = map[string]any{"proficiency_level": *st.ProficiencyLevel}
		}
		items = append(items, item)
	}

	for _, ga := range resp.SkillsProfile.GrowthAreas {
		label := ga.Skill
		item := db.AssessmentItemInput{
			ItemType: db.ItemTypeGrowthArea,
			Label:    &label,
			Score:    ga.CurrentLevel,
			GapScore: ga.GapScore,
			Priority: ga.Priority,
			Metadata: map[string]any{"target_level": ga.TargetLevel},
		}
		if ga.CurrentLevel != nil && ga.TargetLevel != nil {
			evidence := fmt.Sprintf("Current: %.1f, Target: %.1f", *ga.CurrentLevel, *ga.TargetLevel)
			item.Evidence = &evidence
		}
		items = append(items, item)
	}

	for _, ht := range resp.SkillsProfile.HiddenTalents {
		label := ht.Skill
		items = append(items, db.AssessmentItemInput{
			ItemType: db.ItemTypeHiddenTalent,
			Label:    &label,
			Score:    ht.PotentialScore,
			Evidence: ht.Evidence,
		})
	}

	for _, rr := range resp.ReadinessForRoles {
		label := rr.Role
		item := db.AssessmentItemInput{
			ItemType:            db.ItemTypeRoleReadiness,
			Label:               &label,
			ReadinessPercentage: rr.ReadinessPercentage,
			Metadata:            map[string]any{"missing_competencies": rr.MissingCompetencies},
		}
		if rr.ReadinessPercentage != nil {
			normalized := *rr.ReadinessPercentage / 100.0
			item.Score = &normalized
		}
		items = append(items, item)
	}

	return items
}
