package http

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okhta/vidlink/internal/adapter/http/middleware"
	"github.com/okhta/vidlink/internal/adapter/http/ratelimit"
	"github.com/okhta/vidlink/internal/service"
)

type Server struct {
	router      chi.Router
	handlers    *Handlers
	sseHandler  *SSEHandler
	stream      *StreamHandler
	submitLimit *ratelimit.SubmitLimiter
}

func NewServer(jobSvc JobService, eventBus *service.EventBus) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		handlers:   NewHandlers(jobSvc),
		sseHandler: NewSSEHandler(eventBus, jobSvc),
		stream:     NewStreamHandler(),
		submitLimit: ratelimit.NewSubmitLimiter(
			30,
			time.Minute,
			5*time.Minute,
		),
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.SecurityHeaders)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.With(s.limitSubmits).Post("/downloads", s.handlers.Submit)
		r.Get("/downloads/status/{id}", s.handlers.Status)
		r.Get("/downloads/events/{id}", s.sseHandler.Events)
		r.Post("/downloads/get-link", s.handlers.Unlock)
		r.Get("/downloads/history", s.handlers.History)
		r.Get("/downloads/stream", s.stream.Stream)
		r.Post("/ads/complete", s.handlers.AdComplete)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// limitSubmits throttles submissions per client address.
func (s *Server) limitSubmits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := s.submitLimit.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", retryAfter.Round(time.Second).String())
			respondError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
