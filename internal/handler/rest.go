// Package handler exposes the analysis service over HTTP: task submission
// and inspection, live status streaming, report CRUD, and export downloads.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dropscope/dropscope/internal/domain"
	"github.com/dropscope/dropscope/internal/reports"
)

// TaskService is the orchestrator surface the handler depends on.
type TaskService interface {
	Submit(ctx context.Context, domains []string) (*domain.Task, error)
	GetStatus(ctx context.Context, taskID string) (*domain.Task, error)
	GetReport(ctx context.Context, taskID string) (*domain.Task, error)
	Subscribe(ctx context.Context, taskID string) (<-chan domain.StatusSnapshot, func(), error)
}

// REST handles HTTP requests for the analysis service.
type REST struct {
	tasks   TaskService
	reports *reports.Service
	logger  *slog.Logger
}

// NewREST creates a new REST handler.
func NewREST(tasks TaskService, reportSvc *reports.Service, logger *slog.Logger) *REST {
	return &REST{tasks: tasks, reports: reportSvc, logger: logger}
}

// SubmitTaskRequest is the JSON body for POST /api/v1/analysis/tasks.
type SubmitTaskRequest struct {
	Domains []string `json:"domains"`
}

// TaskStatusResponse is the status/submit response body.
type TaskStatusResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func statusResponse(task *domain.Task) TaskStatusResponse {
	return TaskStatusResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Message:   task.Message,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

// SubmitTask handles POST /api/v1/analysis/tasks.
func (h *REST) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("handler").Start(r.Context(), "api.submit_task")
	defer span.End()

	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.tasks.Submit(ctx, req.Domains)
	if err != nil {
		var empty *domain.EmptyDomainListError
		if errors.As(err, &empty) {
			writeError(w, http.StatusBadRequest, "field 'domains' must contain at least one domain name")
			return
		}
		h.logger.Error("submit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int("task.domains", len(task.Domains)),
	)

	writeJSON(w, http.StatusAccepted, statusResponse(task))
}

// GetTaskStatus handles GET /api/v1/analysis/tasks/{id}/status.
func (h *REST) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	task, err := h.tasks.GetStatus(r.Context(), taskID)
	if err != nil {
		h.writeTaskError(w, taskID, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(task))
}

// GetTaskReport handles GET /api/v1/analysis/tasks/{id}/report.
func (h *REST) GetTaskReport(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	task, err := h.tasks.GetReport(r.Context(), taskID)
	if err != nil {
		h.writeTaskError(w, taskID, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CreateReportRequest is the JSON body for POST /api/v1/reports. Nil
// criteria means a general report; filtered=true without explicit criteria
// applies the standard long-lived thresholds.
type CreateReportRequest struct {
	Name     string                 `json:"report_name"`
	TaskID   string                 `json:"task_id"`
	Criteria *domain.FilterCriteria `json:"filter_criteria,omitempty"`
	Filtered bool                   `json:"filtered,omitempty"`
}

// CreateReport handles POST /api/v1/reports.
func (h *REST) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "field 'report_name' is required")
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		writeError(w, http.StatusBadRequest, "field 'task_id' is required")
		return
	}

	criteria := req.Criteria
	if criteria == nil && req.Filtered {
		def := domain.DefaultFilterCriteria()
		criteria = &def
	}

	report, err := h.reports.Create(r.Context(), req.Name, req.TaskID, criteria)
	if err != nil {
		h.writeTaskError(w, req.TaskID, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ListReports handles GET /api/v1/reports.
func (h *REST) ListReports(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.List(r.Context())
	if err != nil {
		h.logger.Error("list reports failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if list == nil {
		list = []*domain.Report{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetReport handles GET /api/v1/reports/{id}.
func (h *REST) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	report, err := h.reports.Get(r.Context(), reportID)
	if err != nil {
		h.writeReportError(w, reportID, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteReport handles DELETE /api/v1/reports/{id}.
func (h *REST) DeleteReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "id")

	if err := h.reports.Delete(r.Context(), reportID); err != nil {
		h.writeReportError(w, reportID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz handles GET /healthz.
func (h *REST) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Readyz handles GET /readyz.
func (h *REST) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// writeTaskError maps task-level typed errors onto HTTP status codes.
func (h *REST) writeTaskError(w http.ResponseWriter, taskID string, err error) {
	var notFound *domain.TaskNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	var notReady *domain.TaskNotReadyError
	if errors.As(err, &notReady) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "task is not completed yet",
			"status": string(notReady.Status),
		})
		return
	}
	h.logger.Error("task request failed",
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to retrieve task")
}

func (h *REST) writeReportError(w http.ResponseWriter, reportID string, err error) {
	var notFound *domain.ReportNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	h.logger.Error("report request failed",
		slog.String("report_id", reportID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to retrieve report")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
