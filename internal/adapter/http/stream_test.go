package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream_ProxiesUpstreamBytes(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("fake video bytes"))
	}))
	defer origin.Close()

	target := "/api/v1/downloads/stream?url=" + url.QueryEscape(origin.URL) + "&title=My/Video:1"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := serve(t, &fakeJobService{}, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".mp4")
	assert.NotContains(t, rec.Header().Get("Content-Disposition"), "/")
	assert.Equal(t, "fake video bytes", rec.Body.String())
}

func TestStream_MissingURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/stream", nil)
	rec := serve(t, &fakeJobService{}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStream_RejectsNonHTTPURL(t *testing.T) {
	target := "/api/v1/downloads/stream?url=" + url.QueryEscape("file:///etc/passwd")
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := serve(t, &fakeJobService{}, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStream_UpstreamErrorIsBadGateway(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	target := "/api/v1/downloads/stream?url=" + url.QueryEscape(origin.URL)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := serve(t, &fakeJobService{}, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Source link might be expired")
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "video_download.mp4", downloadFilename(""))
	assert.Equal(t, "My Video.mp4", downloadFilename("My Video"))
}
