package http

import (
	"io"
	"net/http"
	"time"

	"github.com/okhta/vidlink/internal/adapter/http/validation"
	"github.com/okhta/vidlink/internal/domain"
	"github.com/okhta/vidlink/internal/infrastructure/logger"
)

const streamUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StreamHandler proxies resolved source links whose CDNs refuse direct
// browser downloads. Plain byte forwarding, no caching.
type StreamHandler struct {
	client *http.Client
}

func NewStreamHandler() *StreamHandler {
	return &StreamHandler{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Stream handles GET /api/v1/downloads/stream?url=&title=.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if err := domain.ValidateSourceURL(sourceURL); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid URL provided")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, sourceURL, nil)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid URL provided")
		return
	}
	// Some CDNs return 403 without a browser user agent.
	req.Header.Set("User-Agent", streamUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Error.Printf("stream fetch failed: %v", err)
		respondError(w, http.StatusBadGateway, "Failed to stream video. Source link might be expired.")
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respondError(w, http.StatusBadGateway, "Failed to stream video. Source link might be expired.")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.Header().Set("Content-Disposition", validation.ContentDisposition(downloadFilename(r.URL.Query().Get("title")), false))

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Client went away mid-transfer; nothing to send anymore.
		logger.Warn.Printf("stream copy interrupted: %v", err)
	}
}

func downloadFilename(title string) string {
	if title == "" {
		return "video_download.mp4"
	}
	return title + ".mp4"
}
