package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StreamTaskStatus handles GET /api/v1/analysis/tasks/{id}/stream as a
// Server-Sent Events stream. Each distinct status change is one `data:`
// frame; the terminal snapshot is additionally tagged `event: complete`.
// A disconnecting client only ends the stream, never the task.
func (h *REST) StreamTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, cancel, err := h.tasks.Subscribe(r.Context(), taskID)
	if err != nil {
		h.writeTaskError(w, taskID, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case snap, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error("failed to encode status event",
					slog.String("task_id", taskID),
					slog.String("error", err.Error()),
				)
				return
			}
			if snap.Terminal {
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", payload)
			} else {
				fmt.Fprintf(w, "data: %s\n\n", payload)
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
