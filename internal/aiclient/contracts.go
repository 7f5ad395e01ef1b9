package aiclient

// Wire contracts for the two AI services. The payload shapes mirror what
// the services actually accept and return; optional fields are pointers so
// absent and zero are distinguishable.

// CompetencyData carries one competency's 360° statistics in an assessment
// request.
type CompetencyData struct {
	Name               string    `json:"name"`
	SelfScore          *float64  `json:"self_score"`
	PeerScores         []float64 `json:"peer_scores"`
	ManagerScore       *float64  `json:"manager_score"`
	DirectReportScores []float64 `json:"direct_report_scores"`
}

// EvaluationData groups the competencies sent for assessment
type EvaluationData struct {
	Competencies []CompetencyData `json:"competencies"`
}

// AssessmentRequest is the skills assessment request payload
type AssessmentRequest struct {
	UserID          string         `json:"user_id"`
	EvaluationData  EvaluationData `json:"evaluation_data"`
	CurrentPosition string         `json:"current_position"`
	YearsExperience int            `json:"years_experience"`
}

// AssessmentResponse is the skills assessment response payload
type AssessmentResponse struct {
	AssessmentID      string          `json:"assessment_id"`
	SkillsProfile     SkillsProfile   `json:"skills_profile"`
	ReadinessForRoles []RoleReadiness `json:"readiness_for_roles"`
}

// SkillsProfile groups the assessment insight categories
type SkillsProfile struct {
	Strengths     []Strength     `json:"strengths"`
	GrowthAreas   []GrowthArea   `json:"growth_areas"`
	HiddenTalents []HiddenTalent `json:"hidden_talents"`
}

// Strength is a skill where the user excels
type Strength struct {
	Skill            string   `json:"skill"`
	Score            *float64 `json:"score"`
	ProficiencyLevel *string  `json:"proficiency_level"`
	Evidence         *string  `json:"evidence"`
}

// GrowthArea is a skill with a gap between current and target level
type GrowthArea struct {
	Skill        string   `json:"skill"`
	CurrentLevel *float64 `json:"current_level"`
	TargetLevel  *float64 `json:"target_level"`
	GapScore     *float64 `json:"gap_score"`
	Priority     *string  `json:"priority"`
}

// HiddenTalent is a skill with potential identified from qualitative signals
type HiddenTalent struct {
	Skill          string   `json:"skill"`
	PotentialScore *float64 `json:"potential_score"`
	Evidence       *string  `json:"evidence"`
}

// RoleReadiness reports readiness for a role on a 0-100 percentage scale
type RoleReadiness struct {
	Role                string   `json:"role"`
	ReadinessPercentage *float64 `json:"readiness_percentage"`
	MissingCompetencies []string `json:"missing_competencies"`
}

// OrganizationRole describes one available role in a career path request
type OrganizationRole struct {
	RoleID         string  `json:"role_id"`
	RoleName       string  `json:"role_name"`
	JobFamily      *string `json:"job_family"`
	SeniorityLevel *string `json:"seniority_level"`
}

// CareerPathRequest is the career path generation request payload
type CareerPathRequest struct {
	Skills  SkillsContext  `json:"skills"`
	Profile ProfileContext `json:"profile"`
}

// SkillsContext links the request to a skills assessment
type SkillsContext struct {
	AssessmentID     string   `json:"assessment_id"`
	CareerInterests  []string `json:"career_interests"`
	TimeHorizonYears int      `json:"time_horizon_years"`
}

// ProfileContext carries the user's position and the organization structure
type ProfileContext struct {
	UserID                string             `json:"user_id"`
	CurrentPosition       string             `json:"current_position"`
	OrganizationStructure []OrganizationRole `json:"organization_structure"`
}

// CareerPathResponse is the career path generation response payload
type CareerPathResponse struct {
	GeneratedPaths []GeneratedPath `json:"generated_paths"`
}

// GeneratedPath is one proposed career progression
type GeneratedPath struct {
	PathName            string     `json:"path_name"`
	Recommended         bool       `json:"recommended"`
	TotalDurationMonths *int       `json:"total_duration_months"`
	FeasibilityScore    *float64   `json:"feasibility_score"`
	Steps               []PathStep `json:"steps"`
}

// PathStep is one ordered stage inside a generated path
type PathStep struct {
	StepNumber           int                  `json:"step_number"`
	StepName             string               `json:"step_name"`
	TargetRole           string               `json:"target_role"`
	DurationMonths       *int                 `json:"duration_months"`
	RequiredCompetencies []RequiredCompetency `json:"required_competencies"`
}

// RequiredCompetency names a skill needed for a step with suggested actions
type RequiredCompetency struct {
	Name               string   `json:"name"`
	CurrentLevel       *float64 `json:"current_level"`
	RequiredLevel      *float64 `json:"required_level"`
	DevelopmentActions []string `json:"development_actions"`
}
