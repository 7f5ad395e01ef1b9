package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/evaluation"
)

// ---------------------------------------------------------------------
// Evaluation Handlers
// ---------------------------------------------------------------------

type competencyScoreRequest struct {
	CompetencyName string  `json:"competency_name" validate:"required"`
	Score          float64 `json:"score" validate:"gte=0,lte=10"`
	Comments       *string `json:"comments"`
}

type createEvaluationRequest struct {
	UserID       uuid.UUID                `json:"user_id" validate:"required"`
	CycleID      uuid.UUID                `json:"evaluation_cycle_id" validate:"required"`
	EvaluatorID  uuid.UUID                `json:"evaluator_id" validate:"required"`
	Relationship string                   `json:"evaluator_relationship" validate:"required,oneof=self manager peer direct_report"`
	Competencies []competencyScoreRequest `json:"competency_scores" validate:"required,min=1,dive"`
}

func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req createEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	createReq := &evaluation.CreateRequest{
		UserID:       req.UserID,
		CycleID:      req.CycleID,
		EvaluatorID:  req.EvaluatorID,
		Relationship: req.Relationship,
	}
	for _, c := range req.Competencies {
		createReq.Competencies = append(createReq.Competencies, evaluation.CompetencyEntry{
			CompetencyName: c.CompetencyName,
			Score:          c.Score,
			Comments:       c.Comments,
		})
	}

	created, err := s.evaluations.CreateEvaluation(r.Context(), createReq)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid evaluation ID")
		return
	}

	eval, err := s.evaluations.GetEvaluation(r.Context(), id, true)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, eval)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	var filters db.EvaluationFilters

	q := r.URL.Query()
	for param, target := range map[string]**uuid.UUID{
		"user_id":             &filters.UserID,
		"evaluator_id":        &filters.EvaluatorID,
		"evaluation_cycle_id": &filters.CycleID,
	} {
		if raw := q.Get(param); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid "+param)
				return
			}
			*target = &id
		}
	}
	filters.Status = q.Get("status")

	evals, err := s.evaluations.ListEvaluations(r.Context(), filters)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"evaluations": evals,
		"count":       len(evals),
	})
}

func (s *Server) handleProcessEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid evaluation ID")
		return
	}

	result, err := s.evaluations.ProcessEvaluation(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleGetSkillProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user ID")
		return
	}

	cycleID, err := uuid.Parse(r.URL.Query().Get("evaluation_cycle_id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "evaluation_cycle_id query parameter is required")
		return
	}

	scores, err := s.evaluations.GetSkillProfile(r.Context(), userID, cycleID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"user_id":             userID,
		"evaluation_cycle_id": cycleID,
		"skill_scores":        scores,
		"count":               len(scores),
	})
}
