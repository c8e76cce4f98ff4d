package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/internal/orchestrator"
	"github.com/dropscope/dropscope/internal/reports"
	"github.com/dropscope/dropscope/internal/store"
)

// instantProcessor returns a filter-passing result without any I/O.
type instantProcessor struct{}

func (instantProcessor) Process(_ context.Context, name string) domain.DomainResult {
	avg := 20.0
	gap := 30
	return domain.DomainResult{
		DomainName: name,
		History:    &domain.RawHistory{Domain: name, TotalSnapshots: 250, TimemapCount: 250},
		Metrics: &domain.SnapshotMetrics{
			HasSnapshot:     true,
			TotalSnapshots:  250,
			YearsCovered:    5,
			AvgIntervalDays: &avg,
			MaxGapDays:      &gap,
			IsGood:          true,
			Recommended:     true,
		},
	}
}

type testEnv struct {
	router    http.Handler
	orch      *orchestrator.Orchestrator
	taskStore store.TaskStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	taskStore := store.NewMemory()
	orch := orchestrator.New(taskStore, instantProcessor{}, orchestrator.NewPublisher(nil, logger), logger)
	reportSvc := reports.NewService(reports.NewMemoryStore(), orch, logger)
	rest := NewREST(orch, reportSvc, logger)
	return &testEnv{
		router:    NewRouter(rest, logger),
		orch:      orch,
		taskStore: taskStore,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// submitAndWait runs one task to completion and returns its id.
func (e *testEnv) submitAndWait(t *testing.T, domains ...string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/analysis/tasks", SubmitTaskRequest{Domains: domains})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TaskStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	e.orch.Wait()
	return resp.TaskID
}

func TestSubmitTask(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/analysis/tasks", SubmitTaskRequest{Domains: []string{"example.com"}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TaskStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, string(domain.StatusPending), resp.Status)
	assert.Equal(t, "Task received and queued for processing.", resp.Message)
	env.orch.Wait()
}

func TestSubmitTask_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/analysis/tasks", SubmitTaskRequest{Domains: []string{"  "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/tasks", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTaskStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/analysis/tasks/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	taskID := env.submitAndWait(t, "example.com")
	rec = env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)
}

func TestGetTaskReport(t *testing.T) {
	env := newTestEnv(t)

	taskID := env.submitAndWait(t, "example.com", "old-shop.net")
	rec := env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var task domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.Len(t, task.Results, 2)
	assert.Equal(t, "example.com", task.Results[0].DomainName)
}

func TestGetTaskReport_NotReady(t *testing.T) {
	env := newTestEnv(t)

	// A task parked in PROCESSING, never run.
	now := time.Now().UTC()
	require.NoError(t, env.taskStore.Create(context.Background(), &domain.Task{
		ID:        "stuck",
		Status:    domain.StatusProcessing,
		Message:   "Task processing has started.",
		CreatedAt: now,
		UpdatedAt: now,
		Domains:   []string{"example.com"},
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/analysis/tasks/stuck/report", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.StatusProcessing), body["status"])
}

func TestReportsCRUD(t *testing.T) {
	env := newTestEnv(t)
	taskID := env.submitAndWait(t, "example.com")

	// Unknown task.
	rec := env.do(t, http.MethodPost, "/api/v1/reports", CreateReportRequest{Name: "r", TaskID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing name.
	rec = env.do(t, http.MethodPost, "/api/v1/reports", CreateReportRequest{TaskID: taskID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/reports", CreateReportRequest{Name: "all", TaskID: taskID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.ReportGeneral, report.Type)
	assert.Equal(t, 1, report.DomainsCount)

	rec = env.do(t, http.MethodPost, "/api/v1/reports", CreateReportRequest{Name: "filtered", TaskID: taskID, Filtered: true})
	require.Equal(t, http.StatusCreated, rec.Code)
	var filtered domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, domain.ReportFiltered, filtered.Type)
	require.NotNil(t, filtered.Criteria)

	rec = env.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = env.do(t, http.MethodGet, "/api/v1/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportTaskResults(t *testing.T) {
	env := newTestEnv(t)
	taskID := env.submitAndWait(t, "example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "example.com")

	rec = env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/export?format=xlsx&filter=long-lived", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/analysis/tasks/"+taskID+"/export?filter=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", nil).Code)
}
