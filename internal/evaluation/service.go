// Package evaluation implements the 360° evaluation workflows: capturing
// feedback, gating on cycle completeness, and aggregating competency scores
// into per-skill profiles.
package evaluation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/domain"
)

// Store is the persistence surface the evaluation service depends on.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetCycle(ctx context.Context, id uuid.UUID) (*db.EvaluationCycle, error)
	CreateCycle(ctx context.Context, input *db.EvaluationCycleInput) (*db.EvaluationCycle, error)
	ListCycles(ctx context.Context, status string) ([]db.EvaluationCycle, error)
	UpdateCycle(ctx context.Context, id uuid.UUID, update *db.EvaluationCycleUpdate) (*db.EvaluationCycle, error)
	GetSkillsByNames(ctx context.Context, names []string) ([]db.Skill, error)
	CreateEvaluation(ctx context.Context, input *db.EvaluationInput) (*db.Evaluation, error)
	GetEvaluation(ctx context.Context, id uuid.UUID, loadScores bool) (*db.Evaluation, error)
	ListEvaluations(ctx context.Context, filters db.EvaluationFilters) ([]db.Evaluation, error)
	GetEvaluationsForUserAndCycle(ctx context.Context, userID, cycleID uuid.UUID) ([]db.Evaluation, error)
	ReplaceUserSkillScores(ctx context.Context, userID, cycleID uuid.UUID, scores []db.UserSkillScoreInput) (int, error)
	GetUserSkillScores(ctx context.Context, userID, cycleID uuid.UUID) ([]db.UserSkillScore, error)
}

// Service orchestrates evaluation capture and aggregation.
type Service struct {
	store            Store
	minPeers         int
	minDirectReports int
}

// NewService creates an evaluation service with the given completeness
// thresholds.
func NewService(store Store, minPeers, minDirectReports int) *Service {
	return &Service{
		store:            store,
		minPeers:         minPeers,
		minDirectReports: minDirectReports,
	}
}

// CompetencyEntry is one named competency rating in a create request.
type CompetencyEntry struct {
	CompetencyName string
	Score          float64
	Comments       *string
}

// CreateRequest holds the inputs for creating an evaluation.
type CreateRequest struct {
	UserID       uuid.UUID
	CycleID      uuid.UUID
	EvaluatorID  uuid.UUID
	Relationship string
	Competencies []CompetencyEntry
}

// CreateEvaluation validates the referenced entities and persists a
// submitted evaluation with its competency scores.
func (s *Service) CreateEvaluation(ctx context.Context, req *CreateRequest) (*db.Evaluation, error) {
	log.Printf("creating evaluation for user %s by evaluator %s (relationship: %s)",
		req.UserID, req.EvaluatorID, req.Relationship)

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user %s not found", req.UserID)
	}

	evaluator, err := s.store.GetUser(ctx, req.EvaluatorID)
	if err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, apperrors.NotFound("evaluator %s not found", req.EvaluatorID)
	}

	cycle, err := s.store.GetCycle(ctx, req.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperrors.NotFound("evaluation cycle %s not found", req.CycleID)
	}
	if !cycle.IsActive() {
		return nil, apperrors.Validation(
			"cannot create evaluation: cycle is not active (current status: %s)", cycle.Status)
	}

	// Batch-resolve competency names against the skills catalog
	names := make([]string, 0, len(req.Competencies))
	seen := map[string]bool{}
	for _, c := range req.Competencies {
		if !seen[c.CompetencyName] {
			seen[c.CompetencyName] = true
			names = append(names, c.CompetencyName)
		}
	}

	skills, err := s.store.GetSkillsByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	bySkillName := make(map[string]db.Skill, len(skills))
	for _, sk := range skills {
		bySkillName[sk.Name] = sk
	}

	var missing []string
	for _, name := range names {
		if _, ok := bySkillName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation("invalid competencies: %v not found in skills catalog", missing)
	}

	now := time.Now().UTC()
	input := &db.EvaluationInput{
		UserID:       req.UserID,
		CycleID:      req.CycleID,
		EvaluatorID:  req.EvaluatorID,
		Relationship: req.Relationship,
		Status:       domain.StatusSubmitted,
		SubmittedAt:  &now,
	}
	for _, c := range req.Competencies {
		input.Scores = append(input.Scores, db.CompetencyScoreInput{
			SkillID:  bySkillName[c.CompetencyName].ID,
			Score:    c.Score,
			Comments: c.Comments,
		})
	}

	created, err := s.store.CreateEvaluation(ctx, input)
	if err != nil {
		return nil, err
	}

	log.Printf("created evaluation %s with %d competency scores", created.ID, len(created.Scores))
	return created, nil
}

// GetEvaluation retrieves an evaluation by ID.
func (s *Service) GetEvaluation(ctx context.Context, id uuid.UUID, includeScores bool) (*db.Evaluation, error) {
	eval, err := s.store.GetEvaluation(ctx, id, includeScores)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, apperrors.NotFound("evaluation %s not found", id)
	}
	return eval, nil
}

// ListEvaluations retrieves evaluations with optional filters.
func (s *Service) ListEvaluations(ctx context.Context, filters db.EvaluationFilters) ([]db.Evaluation, error) {
	return s.store.ListEvaluations(ctx, filters)
}

// ProcessResult summarizes a completed aggregation run.
type ProcessResult struct {
	EvaluationID  uuid.UUID `json:"evaluation_id"`
	UserID        uuid.UUID `json:"user_id"`
	CycleID       uuid.UUID `json:"cycle_id"`
	CycleComplete bool      `json:"cycle_complete"`
	SkillsScored  int       `json:"skills_scored"`
	Message       string    `json:"message"`
}

// ProcessEvaluation checks cycle completeness for the evaluation's subject
// and, when complete, aggregates competency scores into the subject's skill
// profile. The profile rows for the (user, cycle) pair are fully replaced.
func (s *Service) ProcessEvaluation(ctx context.Context, evaluationID uuid.UUID) (*ProcessResult, error) {
	log.Printf("processing evaluation %s", evaluationID)

	eval, err := s.store.GetEvaluation(ctx, evaluationID, false)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, apperrors.NotFound("evaluation %s not found", evaluationID)
	}

	evals, err := s.store.GetEvaluationsForUserAndCycle(ctx, eval.UserID, eval.CycleID)
	if err != nil {
		return nil, err
	}
	domainEvals := toDomainEvaluations(evals)

	complete, reason := domain.CycleComplete(domainEvals, s.minPeers, s.minDirectReports)
	if !complete {
		return nil, apperrors.Conflict(
			"cycle not complete for user: %s. Cannot proceed with AI processing", reason)
	}

	log.Printf("cycle complete for user %s, aggregating skill scores", eval.UserID)

	aggregated := domain.AggregateScores(domainEvals)
	inputs := make([]db.UserSkillScoreInput, 0, len(aggregated))
	for skillID, stats := range aggregated {
		inputs = append(inputs, db.UserSkillScoreInput{
			SkillID:    skillID,
			Source:     db.SourceAggregated360,
			Score:      stats.OverallAvg,
			Confidence: stats.Confidence,
			RawStats:   stats.Raw,
		})
	}

	n, err := s.store.ReplaceUserSkillScores(ctx, eval.UserID, eval.CycleID, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to replace skill scores: %w", err)
	}

	log.Printf("evaluation %s processed: %d aggregated skill scores for user %s",
		evaluationID, n, eval.UserID)

	return &ProcessResult{
		EvaluationID:  evaluationID,
		UserID:        eval.UserID,
		CycleID:       eval.CycleID,
		CycleComplete: true,
		SkillsScored:  n,
		Message:       "Evaluation processed. Ready for skills assessment.",
	}, nil
}

// GetSkillProfile retrieves the aggregated skill profile for a user in a
// cycle.
func (s *Service) GetSkillProfile(ctx context.Context, userID, cycleID uuid.UUID) ([]db.UserSkillScore, error) {
	scores, err := s.store.GetUserSkillScores(ctx, userID, cycleID)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, apperrors.NotFound("no skill profile found for user %s in cycle %s", userID, cycleID)
	}
	return scores, nil
}

func toDomainEvaluations(evals []db.Evaluation) []domain.Evaluation {
	out := make([]domain.Evaluation, 0, len(evals))
	for _, e := range evals {
		de := domain.Evaluation{
			ID:           e.ID,
			UserID:       e.UserID,
			CycleID:      e.CycleID,
			EvaluatorID:  e.EvaluatorID,
			Relationship: e.Relationship,
			Status:       e.Status,
			SubmittedAt:  e.SubmittedAt,
		}
		for _, cs := range e.Scores {
			comments := ""
			if cs.Comments != nil {
				comments = *cs.Comments
			}
			de.Scores = append(de.Scores, domain.CompetencyScore{
				SkillID:  cs.SkillID,
				Score:    cs.Score,
				Comments: comments,
			})
		}
		out = append(out, de)
	}
	return out
}
