package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmatsumoto/feedback360/internal/aiclient"
	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/domain"
)

type fakeStore struct {
	users       map[uuid.UUID]*db.User
	roles       map[uuid.UUID]*db.Role
	cycles      map[uuid.UUID]*db.EvaluationCycle
	skillScores []db.UserSkillScore
	skills      []db.Skill
	assessments map[uuid.UUID]*db.SkillsAssessment

	auditCreated *db.AICallInput
	auditID      uuid.UUID
	auditUpdates []db.AICallUpdate

	savedInput *db.SkillsAssessmentInput
	savedItems []db.AssessmentItemInput
	savedAudit *db.AICallUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[uuid.UUID]*db.User{},
		roles:       map[uuid.UUID]*db.Role{},
		cycles:      map[uuid.UUID]*db.EvaluationCycle{},
		assessments: map[uuid.UUID]*db.SkillsAssessment{},
		auditID:     uuid.New(),
	}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetRole(_ context.Context, id uuid.UUID) (*db.Role, error) {
	return f.roles[id], nil
}

func (f *fakeStore) GetCycle(_ context.Context, id uuid.UUID) (*db.EvaluationCycle, error) {
	return f.cycles[id], nil
}

func (f *fakeStore) GetUserSkillScores(_ context.Context, _, _ uuid.UUID) ([]db.UserSkillScore, error) {
	return f.skillScores, nil
}

func (f *fakeStore) GetSkillsByIDs(_ context.Context, _ []uuid.UUID) ([]db.Skill, error) {
	return f.skills, nil
}

func (f *fakeStore) CreateAICall(_ context.Context, input *db.AICallInput) (*db.AICall, error) {
	f.auditCreated = input
	return &db.AICall{ID: f.auditID, ServiceName: input.ServiceName, Status: db.AICallStatusPending}, nil
}

func (f *fakeStore) UpdateAICall(_ context.Context, _ uuid.UUID, update *db.AICallUpdate) error {
	f.auditUpdates = append(f.auditUpdates, *update)
	return nil
}

func (f *fakeStore) SaveGeneratedAssessment(_ context.Context, input *db.SkillsAssessmentInput, items []db.AssessmentItemInput, _ uuid.UUID, audit *db.AICallUpdate) (*db.SkillsAssessment, error) {
	f.savedInput = input
	f.savedItems = items
	f.savedAudit = audit
	a := &db.SkillsAssessment{
		ID:      uuid.New(),
		UserID:  input.UserID,
		CycleID: input.CycleID,
		Status:  input.Status,
	}
	for _, it := range items {
		a.Items = append(a.Items, db.AssessmentItem{
			ID:                  uuid.New(),
			SkillsAssessmentID:  a.ID,
			ItemType:            it.ItemType,
			Label:               it.Label,
			Score:               it.Score,
			GapScore:            it.GapScore,
			Priority:            it.Priority,
			ReadinessPercentage: it.ReadinessPercentage,
			Evidence:            it.Evidence,
		})
	}
	f.assessments[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetAssessment(_ context.Context, id uuid.UUID, _ bool) (*db.SkillsAssessment, error) {
	return f.assessments[id], nil
}

func (f *fakeStore) GetLatestAssessment(_ context.Context, userID uuid.UUID, _ bool) (*db.SkillsAssessment, error) {
	for _, a := range f.assessments {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, nil
}

type fakeAssessor struct {
	resp *aiclient.AssessmentResponse
	err  error
	req  *aiclient.AssessmentRequest
}

func (f *fakeAssessor) AssessSkills(_ context.Context, req *aiclient.AssessmentRequest) (*aiclient.AssessmentResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// ---------------------------------------------------------------------------

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func seedScoredUser(t *testing.T, store *fakeStore) (uuid.UUID, uuid.UUID) {
	t.Helper()

	role := &db.Role{ID: uuid.New(), Name: "Senior Engineer", Active: true}
	store.roles[role.ID] = role

	user := &db.User{ID: uuid.New(), Name: "alice", Email: "alice@example.com", RoleID: &role.ID}
	store.users[user.ID] = user

	cycle := &db.EvaluationCycle{ID: uuid.New(), Name: "H1", Status: db.CycleStatusActive}
	store.cycles[cycle.ID] = cycle

	skill := db.Skill{ID: uuid.New(), Name: "Go"}
	store.skills = []db.Skill{skill}

	raw, err := json.Marshal(domain.RawStats{
		SelfScores:    []float64{9},
		PeerScores:    []float64{7, 7},
		ManagerScores: []float64{8},
		SelfAvg:       floatPtr(9),
		PeerAvg:       floatPtr(7),
		ManagerAvg:    floatPtr(8),
		NSelf:         1, NPeer: 2, NManager: 1,
	})
	require.NoError(t, err)

	store.skillScores = []db.UserSkillScore{{
		ID:         uuid.New(),
		UserID:     user.ID,
		CycleID:    cycle.ID,
		SkillID:    skill.ID,
		Source:     db.SourceAggregated360,
		Score:      7.75,
		Confidence: 0.7,
		RawStats:   raw,
	}}

	return user.ID, cycle.ID
}

func TestGenerateAssessment(t *testing.T) {
	store := newFakeStore()
	userID, cycleID := seedScoredUser(t, store)

	assessor := &fakeAssessor{resp: &aiclient.AssessmentResponse{
		AssessmentID: "assess-123",
		SkillsProfile: aiclient.SkillsProfile{
			Strengths: []aiclient.Strength{
				{Skill: "Go", Score: floatPtr(8.5), ProficiencyLevel: strPtr("advanced")},
			},
			GrowthAreas: []aiclient.GrowthArea{
				{Skill: "Public Speaking", CurrentLevel: floatPtr(4), TargetLevel: floatPtr(7), GapScore: floatPtr(3), Priority: strPtr("high")},
			},
			HiddenTalents: []aiclient.HiddenTalent{
				{Skill: "Mentoring", PotentialScore: floatPtr(7.5)},
			},
		},
		ReadinessForRoles: []aiclient.RoleReadiness{
			{Role: "Staff Engineer", ReadinessPercentage: floatPtr(72), MissingCompetencies: []string{"Architecture"}},
		},
	}}

	svc := NewService(store, assessor)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	saved, err := svc.GenerateAssessment(context.Background(), userID, cycleID)
	require.NoError(t, err)
	assert.Equal(t, "completed", saved.Status)
	assert.Len(t, saved.Items, 4)

	// Request built from stored raw stats
	require.NotNil(t, assessor.req)
	assert.Equal(t, "Senior Engineer", assessor.req.CurrentPosition)
	require.Len(t, assessor.req.EvaluationData.Competencies, 1)
	comp := assessor.req.EvaluationData.Competencies[0]
	assert.Equal(t, "Go", comp.Name)
	assert.Equal(t, 9.0, *comp.SelfScore)
	assert.Equal(t, []float64{7, 7}, comp.PeerScores)
	assert.Equal(t, 8.0, *comp.ManagerScore)

	// Audit row created pending and closed as success inside the save
	require.NotNil(t, store.auditCreated)
	assert.Equal(t, db.ServiceSkillsAssessment, store.auditCreated.ServiceName)
	require.NotNil(t, store.savedAudit)
	assert.Equal(t, db.AICallStatusSuccess, store.savedAudit.Status)
	assert.NotNil(t, store.savedAudit.LatencyMs)

	// Readiness percentage normalized to a 0-1 score exactly once
	var readiness *db.AssessmentItemInput
	for i := range store.savedItems {
		if store.savedItems[i].ItemType == db.ItemTypeRoleReadiness {
			readiness = &store.savedItems[i]
		}
	}
	require.NotNil(t, readiness)
	assert.InDelta(t, 72.0, *readiness.ReadinessPercentage, 1e-9)
	assert.InDelta(t, 0.72, *readiness.Score, 1e-9)
}

func TestGenerateAssessment_NoScores(t *testing.T) {
	store := newFakeStore()
	user := &db.User{ID: uuid.New(), Name: "bob", Email: "bob@example.com"}
	store.users[user.ID] = user
	cycle := &db.EvaluationCycle{ID: uuid.New(), Status: db.CycleStatusActive}
	store.cycles[cycle.ID] = cycle

	svc := NewService(store, &fakeAssessor{})

	_, err := svc.GenerateAssessment(context.Background(), user.ID, cycle.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Nil(t, store.auditCreated, "no audit row should be written before the call is attempted")
}

func TestGenerateAssessment_ServiceFailure(t *testing.T) {
	store := newFakeStore()
	userID, cycleID := seedScoredUser(t, store)

	assessor := &fakeAssessor{err: errors.New("upstream exploded")}
	svc := NewService(store, assessor)

	_, err := svc.GenerateAssessment(context.Background(), userID, cycleID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))

	// Audit row closed with the error
	require.Len(t, store.auditUpdates, 1)
	update := store.auditUpdates[0]
	assert.Equal(t, db.AICallStatusError, update.Status)
	require.NotNil(t, update.ErrorMessage)
	assert.Contains(t, *update.ErrorMessage, "upstream exploded")

	// Nothing persisted
	assert.Nil(t, store.savedInput)
}

func TestGenerateAssessment_Timeout(t *testing.T) {
	store := newFakeStore()
	userID, cycleID := seedScoredUser(t, store)

	assessor := &fakeAssessor{err: context.DeadlineExceeded}
	svc := NewService(store, assessor)

	_, err := svc.GenerateAssessment(context.Background(), userID, cycleID)
	require.Error(t, err)

	require.Len(t, store.auditUpdates, 1)
	assert.Equal(t, db.AICallStatusTimeout, store.auditUpdates[0].Status)
}

func TestGenerateAssessment_UnknownUser(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeAssessor{})

	_, err := svc.GenerateAssessment(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestGetLatestAssessment_NotFound(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeAssessor{})

	_, err := svc.GetLatestAssessment(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
