// Package server provides the HTTP REST API for the 360° feedback engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jmatsumoto/feedback360/internal/aiclient"
	"github.com/jmatsumoto/feedback360/internal/apperrors"
	"github.com/jmatsumoto/feedback360/internal/assessment"
	"github.com/jmatsumoto/feedback360/internal/career"
	"github.com/jmatsumoto/feedback360/internal/config"
	"github.com/jmatsumoto/feedback360/internal/db"
	"github.com/jmatsumoto/feedback360/internal/evaluation"
	"github.com/jmatsumoto/feedback360/internal/resilience"
)

// evaluationService is the evaluation surface the handlers use.
type evaluationService interface {
	CreateEvaluation(ctx context.Context, req *evaluation.CreateRequest) (*db.Evaluation, error)
	GetEvaluation(ctx context.Context, id uuid.UUID, includeScores bool) (*db.Evaluation, error)
	ListEvaluations(ctx context.Context, filters db.EvaluationFilters) ([]db.Evaluation, error)
	ProcessEvaluation(ctx context.Context, id uuid.UUID) (*evaluation.ProcessResult, error)
	GetSkillProfile(ctx context.Context, userID, cycleID uuid.UUID) ([]db.UserSkillScore, error)
	CreateCycle(ctx context.Context, req *evaluation.CycleRequest) (*db.EvaluationCycle, error)
	GetCycle(ctx context.Context, id uuid.UUID) (*db.EvaluationCycle, error)
	ListCycles(ctx context.Context, status string) ([]db.EvaluationCycle, error)
	UpdateCycle(ctx context.Context, id uuid.UUID, update *db.EvaluationCycleUpdate) (*db.EvaluationCycle, error)
}

// assessmentService is the assessment surface the handlers use.
type assessmentService interface {
	GenerateAssessment(ctx context.Context, userID, cycleID uuid.UUID) (*db.SkillsAssessment, error)
	GetAssessment(ctx context.Context, id uuid.UUID) (*db.SkillsAssessment, error)
	GetLatestAssessment(ctx context.Context, userID uuid.UUID) (*db.SkillsAssessment, error)
}

// careerService is the career path surface the handlers use.
type careerService interface {
	GeneratePaths(ctx context.Context, req *career.GenerateRequest) ([]db.CareerPath, error)
	AcceptPath(ctx context.Context, pathID, userID uuid.UUID) (*db.CareerPath, error)
	ListPaths(ctx context.Context, userID uuid.UUID, status string) ([]db.CareerPath, error)
	GetPathDetail(ctx context.Context, pathID uuid.UUID) (*db.CareerPath, error)
}

// auditStore is the audit surface the handlers use.
type auditStore interface {
	ListAICalls(ctx context.Context, serviceName string, limit int) ([]db.AICall, error)
	GetAICall(ctx context.Context, id uuid.UUID) (*db.AICall, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	validate    *validator.Validate
	evaluations evaluationService
	assessments assessmentService
	careers     careerService
	audit       auditStore
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cfg.AIFailureThreshold,
		OpenTimeout:      cfg.AIOpenTimeout,
	}
	retryCfg := resilience.RetryConfig{
		MaxRetries:    cfg.AIMaxRetries,
		InitialDelay:  cfg.AIRetryDelay,
		BackoffFactor: 2.0,
	}

	skillsClient := aiclient.NewSkillsClient(
		aiclient.NewClient(cfg.AISkillsURL, cfg.AIServiceAPIKey, cfg.AIServiceTimeout),
		breakerCfg, retryCfg,
	)
	careerClient := aiclient.NewCareerClient(
		aiclient.NewClient(cfg.AICareerURL, cfg.AIServiceAPIKey, cfg.AIServiceTimeout),
		breakerCfg, retryCfg,
	)

	s := &Server{
		db:          database,
		validate:    validator.New(),
		evaluations: evaluation.NewService(database, cfg.MinPeerEvaluations, cfg.MinDirectReportEvals),
		assessments: assessment.NewService(database, skillsClient),
		careers:     career.NewService(database, careerClient),
		audit:       database,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // AI calls with retries can take a while
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request router
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Evaluation cycle endpoints
	mux.HandleFunc("POST /cycles", s.handleCreateCycle)
	mux.HandleFunc("GET /cycles", s.handleListCycles)
	mux.HandleFunc("GET /cycles/{id}", s.handleGetCycle)
	mux.HandleFunc("PUT /cycles/{id}", s.handleUpdateCycle)

	// Evaluation endpoints
	mux.HandleFunc("POST /evaluations", s.handleCreateEvaluation)
	mux.HandleFunc("GET /evaluations", s.handleListEvaluations)
	mux.HandleFunc("GET /evaluations/{id}", s.handleGetEvaluation)
	mux.HandleFunc("POST /evaluations/{id}/process", s.handleProcessEvaluation)
	mux.HandleFunc("GET /users/{id}/skill-profile", s.handleGetSkillProfile)

	// Skills assessment endpoints
	mux.HandleFunc("POST /assessments", s.handleGenerateAssessment)
	mux.HandleFunc("GET /assessments/{id}", s.handleGetAssessment)
	mux.HandleFunc("GET /users/{id}/assessments/latest", s.handleGetLatestAssessment)

	// Career path endpoints
	mux.HandleFunc("POST /career-paths", s.handleGeneratePaths)
	mux.HandleFunc("GET /career-paths/{id}", s.handleGetPathDetail)
	mux.HandleFunc("POST /career-paths/{id}/accept", s.handleAcceptPath)
	mux.HandleFunc("GET /users/{id}/career-paths", s.handleListPaths)

	// AI call audit endpoints
	mux.HandleFunc("GET /ai-calls", s.handleListAICalls)
	mux.HandleFunc("GET /ai-calls/{id}", s.handleGetAICall)

	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.db != nil {
		s.db.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, code, message string) {
	s.jsonResponse(w, status, map[string]string{"code": code, "error": message})
}

// serviceError maps a service-layer error to the right HTTP response. Typed
// domain errors carry their own status; anything else is a 500.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		s.errorResponse(w, appErr.HTTPStatus(), appErr.Code, appErr.Message)
		return
	}
	log.Printf("internal error: %v", err)
	s.errorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// parsePathID parses the {id} path segment as a UUID
func parsePathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
