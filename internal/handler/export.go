package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropscope/dropscope/internal/export"
	"github.com/dropscope/dropscope/internal/reports"
)

// ExportTaskResults handles
// GET /api/v1/analysis/tasks/{id}/export?format=xlsx|csv&filter=long-lived.
// The long-lived filter is the relaxed shortcut predicate; without it the
// full result list is exported.
func (h *REST) ExportTaskResults(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	task, err := h.tasks.GetReport(r.Context(), taskID)
	if err != nil {
		h.writeTaskError(w, taskID, err)
		return
	}

	results := task.Results
	suffix := "all"
	switch r.URL.Query().Get("filter") {
	case "":
	case "long-lived":
		filtered := results[:0:0]
		for _, res := range results {
			if reports.LongLived(res) {
				filtered = append(filtered, res)
			}
		}
		results = filtered
		suffix = "long-lived"
	default:
		writeError(w, http.StatusBadRequest, "unknown filter: use 'long-lived' or omit")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	filename := fmt.Sprintf("analysis-%s-%s.%s", taskID, suffix, format)

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		err = export.WriteExcel(w, results)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		err = export.WriteCSV(w, results)
	default:
		writeError(w, http.StatusBadRequest, "unknown format: use 'xlsx' or 'csv'")
		return
	}
	if err != nil {
		// Headers are already sent; all that is left is to log.
		h.logger.Error("export failed",
			slog.String("task_id", taskID),
			slog.String("format", format),
			slog.String("error", err.Error()),
		)
	}
}
