package server

import (
	"net/http"
	"strconv"
)

// ---------------------------------------------------------------------
// AI Call Audit Handlers
// ---------------------------------------------------------------------

func (s *Server) handleListAICalls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit")
			return
		}
		limit = n
	}

	calls, err := s.audit.ListAICalls(r.Context(), q.Get("service"), limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"ai_calls": calls,
		"count":    len(calls),
	})
}

func (s *Server) handleGetAICall(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid AI call ID")
		return
	}

	call, err := s.audit.GetAICall(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if call == nil {
		s.errorResponse(w, http.StatusNotFound, "NOT_FOUND", "AI call record not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, call)
}
