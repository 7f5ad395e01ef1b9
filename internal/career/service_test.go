package career

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmatsumoto/feedback360/internal/aiclient"
	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/db"
)

type fakeStore struct {
	users       map[uuid.UUID]*db.User
	roles       []db.Role
	skills      map[string]db.Skill
	assessments map[uuid.UUID]*db.SkillsAssessment
	paths       map[uuid.UUID]*db.CareerPath

	auditID      uuid.UUID
	auditCreated *db.AICallInput
	auditUpdates []db.AICallUpdate

	savedPaths []db.CareerPathInput
	savedAudit *db.AICallUpdate

	acceptedPath *uuid.UUID
	acceptedUser *uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[uuid.UUID]*db.User{},
		skills:      map[string]db.Skill{},
		assessments: map[uuid.UUID]*db.SkillsAssessment{},
		paths:       map[uuid.UUID]*db.CareerPath{},
		auditID:     uuid.New(),
	}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetRole(_ context.Context, id uuid.UUID) (*db.Role, error) {
	for i := range f.roles {
		if f.roles[i].ID == id {
			return &f.roles[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListActiveRoles(_ context.Context) ([]db.Role, error) {
	return f.roles, nil
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

func (f *fakeStore) CreateAICall(_ context.Context, input *db.AICallInput) (*db.AICall, error) {
	f.auditCreated = input
	return &db.AICall{ID: f.auditID, ServiceName: input.ServiceName, Status: db.AICallStatusPending}, nil
}

func (f *fakeStore) UpdateAICall(_ context.Context, _ uuid.UUID, update *db.AICallUpdate) error {
	f.auditUpdates = append(f.auditUpdates, *update)
	return nil
}

func (f *fakeStore) SaveGeneratedPaths(_ context.Context, paths []db.CareerPathInput, _ uuid.UUID, audit *db.AICallUpdate) ([]db.CareerPath, error) {
	f.savedPaths = paths
	f.savedAudit = audit
	var created []db.CareerPath
	for _, input := range paths {
		p := db.CareerPath{
			ID:                 uuid.New(),
			UserID:             input.UserID,
			SkillsAssessmentID: input.SkillsAssessmentID,
			PathName:           input.PathName,
			Recommended:        input.Recommended,
			Status:             db.PathStatusProposed,
		}
		f.paths[p.ID] = &p
		created = append(created, p)
	}
	return created, nil
}

func (f *fakeStore) GetCareerPath(_ context.Context, id uuid.UUID, _ bool) (*db.CareerPath, error) {
	return f.paths[id], nil
}

func (f *fakeStore) ListCareerPaths(_ context.Context, userID uuid.UUID, status string) ([]db.CareerPath, error) {
	var out []db.CareerPath
	for _, p := range f.paths {
		if p.UserID == userID && (status == "" || p.Status == status) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) AcceptCareerPath(_ context.Context, pathID, userID uuid.UUID) (*db.CareerPath, error) {
	f.acceptedPath = &pathID
	f.acceptedUser = &userID
	for _, p := range f.paths {
		if p.UserID == userID && p.ID != pathID &&
			(p.Status == db.PathStatusProposed || p.Status == db.PathStatusAccepted) {
			p.Status = db.PathStatusDiscarded
		}
	}
	p, ok := f.paths[pathID]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	p.Status = db.PathStatusAccepted
	return p, nil
}

type fakeGenerator struct {
	resp *aiclient.CareerPathResponse
	err  error
	req  *aiclient.CareerPathRequest
}

func (f *fakeGenerator) GenerateCareerPaths(_ context.Context, req *aiclient.CareerPathRequest) (*aiclient.CareerPathResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// ---------------------------------------------------------------------------

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func seedAssessedUser(store *fakeStore) (uuid.UUID, uuid.UUID) {
	role := db.Role{ID: uuid.New(), Name: "Senior Engineer", Active: true}
	staff := db.Role{ID: uuid.New(), Name: "Staff Engineer", Active: true}
	store.roles = []db.Role{role, staff}

	user := &db.User{ID: uuid.New(), Name: "alice", Email: "alice@example.com", RoleID: &role.ID}
	store.users[user.ID] = user

	store.skills["System Design"] = db.Skill{ID: uuid.New(), Name: "System Design"}

	raw, _ := json.Marshal(map[string]string{"assessment_id": "assess-ext-1"})
	a := &db.SkillsAssessment{
		ID:          uuid.New(),
		UserID:      user.ID,
		CycleID:     uuid.New(),
		Status:      "completed",
		RawResponse: raw,
	}
	store.assessments[a.ID] = a

	return user.ID, a.ID
}

func sampleResponse() *aiclient.CareerPathResponse {
	return &aiclient.CareerPathResponse{
		GeneratedPaths: []aiclient.GeneratedPath{
			{
				PathName:            "Technical Leadership Track",
				Recommended:         true,
				TotalDurationMonths: intPtr(24),
				FeasibilityScore:    floatPtr(0.8),
				Steps: []aiclient.PathStep{
					{
						StepNumber: 1,
						StepName:   "Grow architecture skills",
						TargetRole: "Staff Engineer",
						RequiredCompetencies: []aiclient.RequiredCompetency{
							{
								Name: "System Design",
								DevelopmentActions: []string{
									"Complete a distributed systems course",
									"Shadow the platform architect",
								},
							},
						},
					},
					{
						StepNumber: 2,
						StepName:   "Lead a cross-team initiative",
						TargetRole: "Principal Engineer",
						RequiredCompetencies: []aiclient.RequiredCompetency{
							{
								Name:               "Influence",
								DevelopmentActions: []string{"Find an executive mentor"},
							},
						},
					},
				},
			},
			{
				PathName:    "Management Track",
				Recommended: false,
				Steps: []aiclient.PathStep{
					{StepNumber: 1, StepName: "Act as interim lead", TargetRole: "Engineering Manager"},
				},
			},
		},
	}
}

func TestGeneratePaths(t *testing.T) {
	store := newFakeStore()
	userID, assessmentID := seedAssessedUser(store)

	gen := &fakeGenerator{resp: sampleResponse()}
	svc := NewService(store, gen)

	created, err := svc.GeneratePaths(context.Background(), &GenerateRequest{
		UserID:          userID,
		CareerInterests: []string{"architecture"},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	// Request carries the external assessment ID and the org structure
	require.NotNil(t, gen.req)
	assert.Equal(t, "assess-ext-1", gen.req.Skills.AssessmentID)
	assert.Equal(t, 3, gen.req.Skills.TimeHorizonYears)
	assert.Equal(t, "Senior Engineer", gen.req.Profile.CurrentPosition)
	assert.Len(t, gen.req.Profile.OrganizationStructure, 2)

	// Mapped inputs: first path has 2 steps with resolved role and skill refs
	require.Len(t, store.savedPaths, 2)
	first := store.savedPaths[0]
	assert.Equal(t, "Technical Leadership Track", first.PathName)
	assert.Equal(t, assessmentID, first.SkillsAssessmentID)
	require.Len(t, first.Steps, 2)

	step1 := first.Steps[0]
	require.NotNil(t, step1.TargetRoleID, "known role name should resolve")
	require.Len(t, step1.Actions, 2)
	assert.Equal(t, db.ActionTypeCourse, step1.Actions[0].ActionType)
	assert.Equal(t, db.ActionTypeShadowing, step1.Actions[1].ActionType)
	assert.NotNil(t, step1.Actions[0].SkillID, "known skill name should resolve")

	step2 := first.Steps[1]
	assert.Nil(t, step2.TargetRoleID, "unknown role name maps to nil")
	require.Len(t, step2.Actions, 1)
	assert.Equal(t, db.ActionTypeMentoring, step2.Actions[0].ActionType)
	assert.Nil(t, step2.Actions[0].SkillID, "unknown skill name maps to nil")

	// Audit closed as success inside the save
	require.NotNil(t, store.savedAudit)
	assert.Equal(t, db.AICallStatusSuccess, store.savedAudit.Status)
}

func TestGeneratePaths_NoAssessment(t *testing.T) {
	store := newFakeStore()
	user := &db.User{ID: uuid.New(), Name: "bob", Email: "bob@example.com"}
	store.users[user.ID] = user

	svc := NewService(store, &fakeGenerator{})

	_, err := svc.GeneratePaths(context.Background(), &GenerateRequest{UserID: user.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestGeneratePaths_AssessmentOwnership(t *testing.T) {
	store := newFakeStore()
	_, assessmentID := seedAssessedUser(store)
	other := &db.User{ID: uuid.New(), Name: "mallory", Email: "mallory@example.com"}
	store.users[other.ID] = other

	svc := NewService(store, &fakeGenerator{})

	_, err := svc.GeneratePaths(context.Background(), &GenerateRequest{
		UserID:       other.ID,
		AssessmentID: &assessmentID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestGeneratePaths_ServiceFailure(t *testing.T) {
	store := newFakeStore()
	userID, _ := seedAssessedUser(store)

	svc := NewService(store, &fakeGenerator{err: errors.New("career service down")})

	_, err := svc.GeneratePaths(context.Background(), &GenerateRequest{UserID: userID})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeExternalService))

	require.Len(t, store.auditUpdates, 1)
	assert.Equal(t, db.AICallStatusError, store.auditUpdates[0].Status)
	assert.Nil(t, store.savedPaths)
}

func TestAcceptPath_DiscardsOthers(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()

	p1 := &db.CareerPath{ID: uuid.New(), UserID: userID, PathName: "A", Status: db.PathStatusProposed}
	p2 := &db.CareerPath{ID: uuid.New(), UserID: userID, PathName: "B", Status: db.PathStatusProposed}
	p3 := &db.CareerPath{ID: uuid.New(), UserID: userID, PathName: "C", Status: db.PathStatusCompleted}
	store.paths[p1.ID] = p1
	store.paths[p2.ID] = p2
	store.paths[p3.ID] = p3

	svc := NewService(store, &fakeGenerator{})

	accepted, err := svc.AcceptPath(context.Background(), p1.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, db.PathStatusAccepted, accepted.Status)
	assert.Equal(t, db.PathStatusDiscarded, p2.Status)
	assert.Equal(t, db.PathStatusCompleted, p3.Status, "completed paths are untouched")
}

func TestAcceptPath_WrongUser(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	p := &db.CareerPath{ID: uuid.New(), UserID: owner, Status: db.PathStatusProposed}
	store.paths[p.ID] = p

	svc := NewService(store, &fakeGenerator{})

	_, err := svc.AcceptPath(context.Background(), p.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestAcceptPath_DiscardedConflict(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	p := &db.CareerPath{ID: uuid.New(), UserID: userID, Status: db.PathStatusDiscarded}
	store.paths[p.ID] = p

	svc := NewService(store, &fakeGenerator{})

	_, err := svc.AcceptPath(context.Background(), p.ID, userID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestAcceptPath_NotFound(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeGenerator{})

	_, err := svc.AcceptPath(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListPaths_BadStatus(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeGenerator{})

	_, err := svc.ListPaths(context.Background(), uuid.New(), "bogus")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestClassifyAction(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Complete a distributed systems course", db.ActionTypeCourse},
		{"Attend leadership training", db.ActionTypeCourse},
		{"Get AWS certification", db.ActionTypeCertification},
		{"Find a mentor in the platform org", db.ActionTypeMentoring},
		{"Shadow the tech lead for a sprint", db.ActionTypeShadowing},
		{"Lead the migration project", db.ActionTypeProject},
		{"Write a personal development plan", db.ActionTypeOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyAction(tc.title), "title: %s", tc.title)
	}
}
