package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------
// Skills Assessment Handlers
// ---------------------------------------------------------------------

type generateAssessmentRequest struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	CycleID uuid.UUID `json:"evaluation_cycle_id" validate:"required"`
}

func (s *Server) handleGenerateAssessment(w http.ResponseWriter, r *http.Request) {
	var req generateAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	saved, err := s.assessments.GenerateAssessment(r.Context(), req.UserID, req.CycleID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, saved)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid assessment ID")
		return
	}

	a, err := s.assessments.GetAssessment(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, a)
}

func (s *Server) handleGetLatestAssessment(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user ID")
		return
	}

	a, err := s.assessments.GetLatestAssessment(r.Context(), userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, a)
}
