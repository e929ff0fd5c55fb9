package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilcraft/obscura/internal/config"
	"github.com/veilcraft/obscura/internal/logging"
)

const testScenario = `
physics:
  gravity: 9.8
  cloud_radius: 10.0
  cloud_sink_rate: 3.0
  cloud_lifetime: 20.0
  carrier_speed_min: 70.0
  carrier_speed_max: 140.0
  munition_interval: 1.0
  munition_mass: 5.0
  munition_drag: 0.005
target:
  base_center: [0.0, 200.0, 0.0]
  radius: 7.0
  height: 10.0
threats:
  - id: M1
    position: [20000.0, 0.0, 2000.0]
    speed: 300.0
    aim_point: [0.0, 0.0, 0.0]
carriers:
  - id: FY1
    position: [17800.0, 0.0, 1800.0]
sampling:
  time_step: 0.1
  circle_samples: 8
  height_samples: 3
`

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "error"
	cfg.Logging.Output = "stderr"

	cfg.Solver.PopulationSize = 10
	cfg.Solver.MaxIterations = 5
	cfg.Solver.Tolerance = 1e-6
	cfg.Solver.Boundary = "reflect"
	cfg.Solver.ArchiveSize = 50

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "error",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testRouter(t *testing.T) (*Server, chi.Router) {
	srv := NewServer(testConfig(t), testLogger(t))
	t.Cleanup(func() { srv.Close() })
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))
	assert.NotNil(t, srv, "Server should be created")
}

func TestHandlePlanRejectsBadScenario(t *testing.T) {
	_, r := testRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"scenario": "threats: []",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePlanAcceptsJob(t *testing.T) {
	_, r := testRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"scenario":       testScenario,
		"max_iterations": 2,
		"seed":           1,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "pending", resp["status"])

	// The job must be queryable right away, whatever state it has reached.
	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/plan/"+jobID, nil)
	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, statusReq)

	require.Equal(t, http.StatusOK, statusRec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	assert.Equal(t, jobID, status["job_id"])
	assert.Contains(t, []interface{}{"pending", "running", "completed"}, status["status"])
}

func TestHandleStatusUnknownJob(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plan/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCancelUnknownJob(t *testing.T) {
	_, r := testRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/plan/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJSONRPCValidation(t *testing.T) {
	_, r := testRouter(t)

	tests := []struct {
		name     string
		body     string
		wantCode float64
	}{
		{"parse error", "{not json", -32700},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"plan.start"}`, -32600},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"plan.destroy"}`, -32601},
		{"missing job id", `{"jsonrpc":"2.0","id":1,"method":"plan.status","params":{}}`, -32602},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			var resp struct {
				Error struct {
					Code float64 `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestJSONRPCLifecycle(t *testing.T) {
	_, r := testRouter(t)

	start := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "plan.start",
		"params": map[string]interface{}{
			"scenario":       testScenario,
			"max_iterations": 1000,
			"seed":           3,
		},
	}
	body, _ := json.Marshal(start)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var startResp struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &startResp))
	jobID, _ := startResp.Result["job_id"].(string)
	require.NotEmpty(t, jobID)

	// Cancel the long-running job.
	cancelBody, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "plan.cancel",
		"params":  map[string]interface{}{"job_id": jobID},
	})
	cancelReq := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(cancelBody))
	cancelRec := httptest.NewRecorder()
	r.ServeHTTP(cancelRec, cancelReq)

	var cancelResp struct {
		Result map[string]string      `json:"result"`
		Error  map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(cancelRec.Body.Bytes(), &cancelResp))

	// The job either cancelled, or had already finished; both are terminal.
	statusBody, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "plan.status",
		"params":  map[string]interface{}{"job_id": jobID},
	})
	statusReq := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(statusBody))
	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, statusReq)

	var statusResp struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &statusResp))
	assert.Equal(t, jobID, statusResp.Result["job_id"])
	assert.Contains(t,
		[]interface{}{"cancelled", "completed", "failed", "running"},
		statusResp.Result["status"])
}
