package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/service"
)

// SSEHandler streams job status events so clients can avoid polling the
// status endpoint. Purely an observer surface; polling remains the source
// of truth.
type SSEHandler struct {
	eventBus *service.EventBus
	jobSvc   JobService
}

func NewSSEHandler(eventBus *service.EventBus, jobSvc JobService) *SSEHandler {
	return &SSEHandler{eventBus: eventBus, jobSvc: jobSvc}
}

type sseEvent struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Events handles GET /api/v1/downloads/events/{id}.
func (h *SSEHandler) Events(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	view, err := h.jobSvc.Status(r.Context(), ownerID(r), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, "Job not found")
		case errors.Is(err, domain.ErrExpired):
			respondError(w, http.StatusGone, "Job has expired")
		default:
			respondError(w, http.StatusInternalServerError, "Error checking status")
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send the current state immediately so late subscribers converge.
	writeSSE(w, sseEvent{JobID: jobID, Status: string(view.Job.Status), Message: view.Job.Error})
	flusher.Flush()
	if view.Job.IsTerminal() {
		return
	}

	events := h.eventBus.Subscribe(jobID)
	defer h.eventBus.Unsubscribe(jobID, events)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, sseEvent{JobID: jobID, Status: string(ev.Status), Message: ev.Message})
			flusher.Flush()
			if ev.Terminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev sseEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
}
