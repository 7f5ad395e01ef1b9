package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/career"
)

// ---------------------------------------------------------------------
// Career Path Handlers
// ---------------------------------------------------------------------

type generatePathsRequest struct {
	UserID           uuid.UUID  `json:"user_id" validate:"required"`
	AssessmentID     *uuid.UUID `json:"skills_assessment_id"`
	CareerInterests  []string   `json:"career_interests"`
	TimeHorizonYears int        `json:"time_horizon_years" validate:"gte=0,lte=20"`
}

func (s *Server) handleGeneratePaths(w http.ResponseWriter, r *http.Request) {
	var req generatePathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	paths, err := s.careers.GeneratePaths(r.Context(), &career.GenerateRequest{
		UserID:           req.UserID,
		AssessmentID:     req.AssessmentID,
		CareerInterests:  req.CareerInterests,
		TimeHorizonYears: req.TimeHorizonYears,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"career_paths": paths,
		"count":        len(paths),
	})
}

func (s *Server) handleGetPathDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid career path ID")
		return
	}

	path, err := s.careers.GetPathDetail(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, path)
}

type acceptPathRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

func (s *Server) handleAcceptPath(w http.ResponseWriter, r *http.Request) {
	pathID, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid career path ID")
		return
	}

	var req acceptPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	accepted, err := s.careers.AcceptPath(r.Context(), pathID, req.UserID)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, accepted)
}

func (s *Server) handleListPaths(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user ID")
		return
	}

	paths, err := s.careers.ListPaths(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"career_paths": paths,
		"count":        len(paths),
	})
}
