package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/evaluation"
)

// ---------------------------------------------------------------------
// Evaluation Cycle Handlers
// ---------------------------------------------------------------------

type createCycleRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Status      string    `json:"status" validate:"omitempty,oneof=draft active closed"`
}

func (s *Server) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	var req createCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	cycle, err := s.evaluations.CreateCycle(r.Context(), &evaluation.CycleRequest{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, cycle)
}

func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid cycle ID")
		return
	}

	cycle, err := s.evaluations.GetCycle(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, cycle)
}

func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := s.evaluations.ListCycles(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"cycles": cycles,
		"count":  len(cycles),
	})
}

type updateCycleRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Status      *string    `json:"status"`
}

func (s *Server) handleUpdateCycle(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid cycle ID")
		return
	}

	var req updateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	cycle, err := s.evaluations.UpdateCycle(r.Context(), id, &db.EvaluationCycleUpdate{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, cycle)
}
