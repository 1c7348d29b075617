package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/infrastructure/logger"
	"github.com/okhta/vidlink/internal/service"
)

// JobService is the application surface the handlers drive.
type JobService interface {
	Submit(ctx context.Context, ownerID, sourceURL string) (*service.SubmitResult, error)
	Status(ctx context.Context, ownerID, jobID string) (*service.JobView, error)
	Unlock(ctx context.Context, ownerID, jobID, presentedToken string) (*service.UnlockResult, error)
	IssueGateToken(ctx context.Context, ownerID, jobID string) (string, error)
	History(ctx context.Context, ownerID string, page, limit int) ([]*domain.Job, int, error)
}

type Handlers struct {
	jobSvc JobService
}

func NewHandlers(jobSvc JobService) *Handlers {
	return &Handlers{jobSvc: jobSvc}
}

// ownerID reads the caller identity set by the upstream auth layer.
// Absent header means an anonymous submission.
func ownerID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	Message   string `json:"message"`
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// Submit handles POST /api/v1/downloads.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.jobSvc.Submit(r.Context(), ownerID(r), req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			respondError(w, http.StatusBadRequest, "Invalid URL provided")
			return
		}
		logger.Error.Printf("submit failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	msg := "Download started"
	if result.Cached {
		msg = "Download started (Cached)"
	}
	respondJSON(w, http.StatusAccepted, submitResponse{
		Message:   msg,
		JobID:     result.JobID,
		StatusURL: "/api/v1/downloads/status/" + result.JobID,
	})
}

type statusResponse struct {
	*domain.Job
	RequiresAd    bool   `json:"requiresAd,omitempty"`
	AdCompleteURL string `json:"adCompleteUrl,omitempty"`
	UnlockURL     string `json:"unlockUrl,omitempty"`
}

// Status handles GET /api/v1/downloads/status/{id}.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	view, err := h.jobSvc.Status(r.Context(), ownerID(r), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		if errors.Is(err, domain.ErrExpired) {
			respondError(w, http.StatusGone, "Job has expired")
			return
		}
		logger.Error.Printf("status check for %s failed: %v", logger.SanitizeForLog(jobID), err)
		respondError(w, http.StatusInternalServerError, "Error checking status")
		return
	}

	resp := statusResponse{Job: view.Job}
	if view.RequiresAd {
		resp.RequiresAd = true
		resp.AdCompleteURL = "/api/v1/ads/complete"
		resp.UnlockURL = "/api/v1/downloads/get-link"
	}
	respondJSON(w, http.StatusOK, resp)
}

type unlockRequest struct {
	JobID   string `json:"jobId"`
	AdToken string `json:"adToken"`
}

type unlockResponse struct {
	Success     bool             `json:"success"`
	DownloadURL *string          `json:"downloadUrl"`
	Metadata    *domain.Metadata `json:"metadata"`
}

// Unlock handles POST /api/v1/downloads/get-link.
func (h *Handlers) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.JobID == "" || req.AdToken == "" {
		respondError(w, http.StatusBadRequest, "Missing Job ID or Ad Token")
		return
	}

	result, err := h.jobSvc.Unlock(r.Context(), ownerID(r), req.JobID, req.AdToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVerificationFailed):
			respondJSON(w, http.StatusPaymentRequired, map[string]string{
				"message": "Invalid Ad Token",
				"code":    "AD_VERIFICATION_FAILED",
			})
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, http.StatusNotFound, "Job not found")
		case errors.Is(err, domain.ErrExpired):
			respondError(w, http.StatusGone, "Job has expired")
		default:
			logger.Error.Printf("unlock for %s failed: %v", logger.SanitizeForLog(req.JobID), err)
			respondError(w, http.StatusInternalServerError, "Error retrieving link")
		}
		return
	}

	respondJSON(w, http.StatusOK, unlockResponse{
		Success:     true,
		DownloadURL: result.DownloadURL,
		Metadata:    result.Metadata,
	})
}

type adCompleteRequest struct {
	JobID string `json:"jobId"`
}

// AdComplete handles POST /api/v1/ads/complete. It stands in for the
// ad-delivery flow's completion callback and mints the unlock token the
// client presents to get-link.
func (h *Handlers) AdComplete(w http.ResponseWriter, r *http.Request) {
	var req adCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		respondError(w, http.StatusBadRequest, "Missing Job ID")
		return
	}

	token, err := h.jobSvc.IssueGateToken(r.Context(), ownerID(r), req.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		if errors.Is(err, domain.ErrExpired) {
			respondError(w, http.StatusGone, "Job has expired")
			return
		}
		logger.Error.Printf("ad token issue for %s failed: %v", logger.SanitizeForLog(req.JobID), err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"adToken": token})
}

type historyResponse struct {
	Success    bool          `json:"success"`
	Data       []*domain.Job `json:"data"`
	Pagination pagination    `json:"pagination"`
}

type pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// History handles GET /api/v1/downloads/history.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	// Clamp here too so the echoed pagination matches what was applied.
	if limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	jobs, total, err := h.jobSvc.History(r.Context(), owner, page, limit)
	if err != nil {
		logger.Error.Printf("history for %s failed: %v", logger.SanitizeForLog(owner), err)
		respondError(w, http.StatusInternalServerError, "Error fetching history")
		return
	}
	if jobs == nil {
		jobs = []*domain.Job{}
	}

	respondJSON(w, http.StatusOK, historyResponse{
		Success:    true,
		Data:       jobs,
		Pagination: pagination{Total: total, Page: page, Limit: limit},
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error.Printf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
