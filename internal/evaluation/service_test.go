package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/domain"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	users       map[uuid.UUID]*db.User
	cycles      map[uuid.UUID]*db.EvaluationCycle
	skills      map[string]db.Skill
	evaluations map[uuid.UUID]*db.Evaluation
	skillScores map[uuid.UUID][]db.UserSkillScore

	replacedScores []db.UserSkillScoreInput
	replacedUser   uuid.UUID
	replacedCycle  uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[uuid.UUID]*db.User{},
		cycles:      map[uuid.UUID]*db.EvaluationCycle{},
		skills:      map[string]db.Skill{},
		evaluations: map[uuid.UUID]*db.Evaluation{},
		skillScores: map[uuid.UUID][]db.UserSkillScore{},
	}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetCycle(_ context.Context, id uuid.UUID) (*db.EvaluationCycle, error) {
	return f.cycles[id], nil
}

func (f *fakeStore) CreateCycle(_ context.Context, input *db.EvaluationCycleInput) (*db.EvaluationCycle, error) {
	c := &db.EvaluationCycle{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      input.Status,
	}
	f.cycles[c.ID] = c
	return c, nil
}

func (f *fakeStore) ListCycles(_ context.Context, status string) ([]db.EvaluationCycle, error) {
	var out []db.EvaluationCycle
	for _, c := range f.cycles {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCycle(_ context.Context, id uuid.UUID, update *db.EvaluationCycleUpdate) (*db.EvaluationCycle, error) {
	c, ok := f.cycles[id]
	if !ok {
		return nil, nil
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Status != nil {
		c.Status = *update.Status
	}
	if update.StartDate != nil {
		c.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		c.EndDate = *update.EndDate
	}
	return c, nil
}

func (f *fakeStore) GetSkillsByNames(_ context.Context, names []string) ([]db.Skill, error) {
	var out []db.Skill
	for _, n := range names {
		if s, ok := f.skills[n]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateEvaluation(_ context.Context, input *db.EvaluationInput) (*db.Evaluation, error) {
	e := &db.Evaluation{
		ID:           uuid.New(),
		UserID:       input.UserID,
		CycleID:      input.CycleID,
		EvaluatorID:  input.EvaluatorID,
		Relationship: input.Relationship,
		Status:       input.Status,
		SubmittedAt:  input.SubmittedAt,
	}
	for _, sc := range input.Scores {
		e.Scores = append(e.Scores, db.CompetencyScore{
			ID:           uuid.New(),
			EvaluationID: e.ID,
			SkillID:      sc.SkillID,
			Score:        sc.Score,
			Comments:     sc.Comments,
		})
	}
	f.evaluations[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetEvaluation(_ context.Context, id uuid.UUID, _ bool) (*db.Evaluation, error) {
	return f.evaluations[id], nil
}

func (f *fakeStore) ListEvaluations(_ context.Context, filters db.EvaluationFilters) ([]db.Evaluation, error) {
	var out []db.Evaluation
	for _, e := range f.evaluations {
		if filters.UserID != nil && e.UserID != *filters.UserID {
			continue
		}
		if filters.CycleID != nil && e.CycleID != *filters.CycleID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) GetEvaluationsForUserAndCycle(_ context.Context, userID, cycleID uuid.UUID) ([]db.Evaluation, error) {
	var out []db.Evaluation
	for _, e := range f.evaluations {
		if e.UserID == userID && e.CycleID == cycleID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) ReplaceUserSkillScores(_ context.Context, userID, cycleID uuid.UUID, scores []db.UserSkillScoreInput) (int, error) {
	f.replacedUser = userID
	f.replacedCycle = cycleID
	f.replacedScores = scores
	return len(scores), nil
}

func (f *fakeStore) GetUserSkillScores(_ context.Context, userID, _ uuid.UUID) ([]db.UserSkillScore, error) {
	return f.skillScores[userID], nil
}

// ---------------------------------------------------------------------------

func seedActiveCycle(f *fakeStore) *db.EvaluationCycle {
	c := &db.EvaluationCycle{
		ID:        uuid.New(),
		Name:      "H1 2026",
		StartDate: time.Now().Add(-24 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		Status:    db.CycleStatusActive,
	}
	f.cycles[c.ID] = c
	return c
}

func seedUser(f *fakeStore, name string) *db.User {
	u := &db.User{ID: uuid.New(), Name: name, Email: name + "@example.com"}
	f.users[u.ID] = u
	return u
}

func seedSkill(f *fakeStore, name string) db.Skill {
	s := db.Skill{ID: uuid.New(), Name: name}
	f.skills[name] = s
	return s
}

func submitEvaluation(f *fakeStore, user, cycle uuid.UUID, relationship string, skill uuid.UUID, score float64) {
	now := time.Now()
	e := &db.Evaluation{
		ID:           uuid.New(),
		UserID:       user,
		CycleID:      cycle,
		EvaluatorID:  uuid.New(),
		Relationship: relationship,
		Status:       domain.StatusSubmitted,
		SubmittedAt:  &now,
		Scores: []db.CompetencyScore{
			{ID: uuid.New(), SkillID: skill, Score: score},
		},
	}
	f.evaluations[e.ID] = e
}

func TestCreateEvaluation(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	user := seedUser(store, "alice")
	evaluator := seedUser(store, "bob")
	skill := seedSkill(store, "Go")

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	created, err := svc.CreateEvaluation(context.Background(), &CreateRequest{
		UserID:       user.ID,
		CycleID:      cycle.ID,
		EvaluatorID:  evaluator.ID,
		Relationship: domain.RelationshipPeer,
		Competencies: []CompetencyEntry{{CompetencyName: "Go", Score: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, created.Status)
	require.Len(t, created.Scores, 1)
	assert.Equal(t, skill.ID, created.Scores[0].SkillID)
	assert.NotNil(t, created.SubmittedAt)
}

func TestCreateEvaluation_UnknownUser(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	evaluator := seedUser(store, "bob")

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.CreateEvaluation(context.Background(), &CreateRequest{
		UserID:       uuid.New(),
		CycleID:      cycle.ID,
		EvaluatorID:  evaluator.ID,
		Relationship: domain.RelationshipPeer,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCreateEvaluation_InactiveCycle(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	cycle.Status = db.CycleStatusClosed
	user := seedUser(store, "alice")
	evaluator := seedUser(store, "bob")

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.CreateEvaluation(context.Background(), &CreateRequest{
		UserID:       user.ID,
		CycleID:      cycle.ID,
		EvaluatorID:  evaluator.ID,
		Relationship: domain.RelationshipSelf,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "not active")
}

func TestCreateEvaluation_UnknownCompetency(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	user := seedUser(store, "alice")
	evaluator := seedUser(store, "bob")
	seedSkill(store, "Go")

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.CreateEvaluation(context.Background(), &CreateRequest{
		UserID:       user.ID,
		CycleID:      cycle.ID,
		EvaluatorID:  evaluator.ID,
		Relationship: domain.RelationshipPeer,
		Competencies: []CompetencyEntry{
			{CompetencyName: "Go", Score: 8},
			{CompetencyName: "Underwater Basket Weaving", Score: 9},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "Underwater Basket Weaving")
}

func TestProcessEvaluation_IncompleteCycle(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	user := seedUser(store, "alice")
	skill := seedSkill(store, "Go")

	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipSelf, skill.ID, 7)
	var evalID uuid.UUID
	for id := range store.evaluations {
		evalID = id
	}

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.ProcessEvaluation(context.Background(), evalID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Contains(t, err.Error(), "Missing:")
}

func TestProcessEvaluation_AggregatesAndReplaces(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	user := seedUser(store, "alice")
	skill := seedSkill(store, "Go")

	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipSelf, skill.ID, 9)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipManager, skill.ID, 8)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipPeer, skill.ID, 7)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipPeer, skill.ID, 7)

	var evalID uuid.UUID
	for id := range store.evaluations {
		evalID = id
	}

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	result, err := svc.ProcessEvaluation(context.Background(), evalID)
	require.NoError(t, err)
	assert.True(t, result.CycleComplete)
	assert.Equal(t, 1, result.SkillsScored)
	assert.Equal(t, user.ID, result.UserID)

	require.Len(t, store.replacedScores, 1)
	got := store.replacedScores[0]
	assert.Equal(t, skill.ID, got.SkillID)
	assert.Equal(t, db.SourceAggregated360, got.Source)
	assert.InDelta(t, 7.75, got.Score, 1e-9)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
	assert.Equal(t, user.ID, store.replacedUser)
	assert.Equal(t, cycle.ID, store.replacedCycle)
}

func TestProcessEvaluation_ReplacementIsIdempotent(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	user := seedUser(store, "alice")
	skill := seedSkill(store, "Go")

	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipSelf, skill.ID, 9)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipManager, skill.ID, 8)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipPeer, skill.ID, 7)
	submitEvaluation(store, user.ID, cycle.ID, domain.RelationshipPeer, skill.ID, 7)

	var evalID uuid.UUID
	for id := range store.evaluations {
		evalID = id
	}

	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	first, err := svc.ProcessEvaluation(context.Background(), evalID)
	require.NoError(t, err)
	firstScores := append([]db.UserSkillScoreInput(nil), store.replacedScores...)

	second, err := svc.ProcessEvaluation(context.Background(), evalID)
	require.NoError(t, err)

	assert.Equal(t, first.SkillsScored, second.SkillsScored)
	assert.Equal(t, firstScores, store.replacedScores)

	seen := map[uuid.UUID]bool{}
	for _, sc := range store.replacedScores {
		assert.False(t, seen[sc.SkillID], "duplicate row for skill %s", sc.SkillID)
		seen[sc.SkillID] = true
	}
}

func TestProcessEvaluation_NotFound(t *testing.T) {
	svc := NewService(newFakeStore(), domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.ProcessEvaluation(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestGetSkillProfile_Empty(t *testing.T) {
	svc := NewService(newFakeStore(), domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.GetSkillProfile(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCreateCycle_Validation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	_, err := svc.CreateCycle(context.Background(), &CycleRequest{
		Name:      "bad",
		StartDate: time.Now(),
		EndDate:   time.Now().Add(-time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	cycle, err := svc.CreateCycle(context.Background(), &CycleRequest{
		Name:      "H2 2026",
		StartDate: time.Now(),
		EndDate:   time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, db.CycleStatusDraft, cycle.Status)
}

func TestUpdateCycle(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	bogus := "archived"
	_, err := svc.UpdateCycle(context.Background(), cycle.ID, &db.EvaluationCycleUpdate{Status: &bogus})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	closed := db.CycleStatusClosed
	_, err = svc.UpdateCycle(context.Background(), uuid.New(), &db.EvaluationCycleUpdate{Status: &closed})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	updated, err := svc.UpdateCycle(context.Background(), cycle.ID, &db.EvaluationCycleUpdate{Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, db.CycleStatusClosed, updated.Status)
}

func TestUpdateCycle_ClosedCycleIsFrozen(t *testing.T) {
	store := newFakeStore()
	cycle := seedActiveCycle(store)
	cycle.Status = db.CycleStatusClosed
	svc := NewService(store, domain.DefaultMinPeers, domain.DefaultMinDirectReports)

	name := "H1 2026 (revised)"
	_, err := svc.UpdateCycle(context.Background(), cycle.ID, &db.EvaluationCycleUpdate{Name: &name})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "closed")
	assert.Equal(t, "H1 2026", store.cycles[cycle.ID].Name)

	// Closed is terminal; a cycle cannot be reopened.
	active := db.CycleStatusActive
	_, err = svc.UpdateCycle(context.Background(), cycle.ID, &db.EvaluationCycleUpdate{Status: &active})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
