package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veilcraft/obscura/internal/config"
	"github.com/veilcraft/obscura/internal/logging"
	"github.com/veilcraft/obscura/internal/mission"
	"github.com/veilcraft/obscura/internal/optimization/de"
	"github.com/veilcraft/obscura/internal/scenario"
)

// Logger is the logging surface the server needs. Keeping it an interface
// lets tests plug in a quiet logger.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// JobState tracks one planning job. Access is guarded by the server's
// jobs mutex.
type JobState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Plan        *mission.MissionPlan
	Err         string
	CancelFunc  context.CancelFunc
}

// Server exposes planning jobs over HTTP and JSON-RPC 2.0.
type Server struct {
	cfg    *config.Config
	logger Logger

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
}

// NewServer creates a server with an empty job table.
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[string]*JobState),
	}
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plan", s.handlePlan)
		r.Get("/plan/{id}", s.handleStatus)
		r.Delete("/plan/{id}", s.handleCancel)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

// planRequest is the payload for starting a job. Scenario is optional
// YAML; when empty the built-in default scenario is used.
type planRequest struct {
	Scenario       string  `json:"scenario,omitempty"`
	PopulationSize int     `json:"population_size,omitempty"`
	MaxIterations  int     `json:"max_iterations,omitempty"`
	Seed           uint64  `json:"seed,omitempty"`
	Tolerance      float64 `json:"tolerance,omitempty"`
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "plan.start":
		var req planRequest
		if len(request.Params) > 0 {
			if err := json.Unmarshal(request.Params, &req); err != nil {
				s.respondWithError(w, -32602, "Invalid params", request.ID)
				return
			}
		}
		result, err = s.startJob(req)
	case "plan.status":
		var p struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(request.Params, &p); err != nil || p.JobID == "" {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		result, err = s.jobStatus(p.JobID)
	case "plan.cancel":
		var p struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(request.Params, &p); err != nil || p.JobID == "" {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		err = s.cancelJob(p.JobID)
		result = map[string]string{"status": "cancelled"}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// startJob validates the request, registers a job, and kicks off the
// planner in a goroutine.
func (s *Server) startJob(req planRequest) (interface{}, error) {
	sc, err := s.loadScenario(req.Scenario)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	opts, err := s.solverOptions(req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	state := &JobState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		CancelFunc:  cancel,
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	jobsStarted.Inc()
	go s.runJob(ctx, id, sc, opts)

	return map[string]interface{}{
		"job_id": id,
		"status": "pending",
	}, nil
}

func (s *Server) loadScenario(raw string) (*scenario.Scenario, error) {
	if raw == "" {
		return scenario.Default()
	}
	return scenario.Parse([]byte(raw))
}

func (s *Server) solverOptions(req planRequest) (de.Options, error) {
	opts := de.DefaultOptions()
	opts.PopulationSize = s.cfg.Solver.PopulationSize
	opts.MaxIterations = s.cfg.Solver.MaxIterations
	opts.Tolerance = s.cfg.Solver.Tolerance
	opts.ArchiveSize = s.cfg.Solver.ArchiveSize
	opts.ShrinkPopulation = s.cfg.Solver.ShrinkPop

	rule, err := de.ParseBoundaryRule(s.cfg.Solver.Boundary)
	if err != nil {
		return opts, err
	}
	opts.Boundary = rule

	if req.PopulationSize > 0 {
		opts.PopulationSize = req.PopulationSize
	}
	if req.MaxIterations > 0 {
		opts.MaxIterations = req.MaxIterations
	}
	if req.Tolerance > 0 {
		opts.Tolerance = req.Tolerance
	}
	opts.Seed = req.Seed
	return opts, nil
}

// runJob drives the planner and records the outcome in the job table.
func (s *Server) runJob(ctx context.Context, id string, sc *scenario.Scenario, opts de.Options) {
	s.setStatus(id, "running")
	activeJobs.Inc()
	defer activeJobs.Dec()

	start := time.Now()
	planner := mission.NewPlanner(sc, s.logger.WithFields(map[string]interface{}{"job_id": id}), opts)
	plan, err := planner.Plan(ctx)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, ok := s.jobs[id]
	if !ok || state.Status == "cancelled" {
		return
	}
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	switch {
	case ctx.Err() != nil:
		state.Status = "cancelled"
		jobsFinished.WithLabelValues("cancelled").Inc()
	case err != nil:
		state.Status = "failed"
		state.Err = err.Error()
		jobsFinished.WithLabelValues("failed").Inc()
		s.logger.Error("planning failed", map[string]interface{}{
			"job_id": id,
			"error":  err.Error(),
		})
	default:
		state.Status = "completed"
		state.Plan = plan
		jobsFinished.WithLabelValues("completed").Inc()
		planDuration.Observe(time.Since(start).Seconds())
		planScore.Set(plan.WeightedScore)
		s.logger.Info("planning completed", map[string]interface{}{
			"job_id":         id,
			"weighted_score": plan.WeightedScore,
			"duration":       time.Since(start).String(),
		})
	}
}

func (s *Server) setStatus(id, status string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if state, ok := s.jobs[id]; ok {
		state.Status = status
		state.LastUpdated = time.Now()
	}
}

// jobStatus builds the status payload for a job.
func (s *Server) jobStatus(id string) (interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found")
	}

	response := map[string]interface{}{
		"job_id":      state.ID,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != "" {
		response["error"] = state.Err
	}
	if state.Plan != nil {
		threats := make([]map[string]interface{}, 0, len(state.Plan.Threats))
		for _, tp := range state.Plan.Threats {
			threats = append(threats, map[string]interface{}{
				"threat_id":    tp.ThreatID,
				"weight":       tp.Weight,
				"covered_time": tp.CoveredTime,
				"generations":  tp.Generations,
				"converged":    tp.Converged,
				"strategy":     tp.Strategy,
			})
		}
		response["plan"] = map[string]interface{}{
			"weighted_score": state.Plan.WeightedScore,
			"threats":        threats,
		}
	}
	return response, nil
}

// cancelJob cancels a pending or running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel job with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	jobsFinished.WithLabelValues("cancelled").Inc()

	s.logger.Info("job cancelled", map[string]interface{}{
		"job_id": id,
	})
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels every in-flight job.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}

// handlePlan handles POST /api/v1/plan.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startJob(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/plan/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	result, err := s.jobStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles DELETE /api/v1/plan/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	if err := s.cancelJob(id); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}
