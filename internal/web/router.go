package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Anmol-345/Arcanus/internal/directory"
	"github.com/Anmol-345/Arcanus/internal/metrics"
	"github.com/Anmol-345/Arcanus/internal/platform"
	"github.com/Anmol-345/Arcanus/internal/platform/memory"
	"github.com/Anmol-345/Arcanus/internal/report"
	"github.com/Anmol-345/Arcanus/internal/room"
	"github.com/Anmol-345/Arcanus/internal/session"
)

// Server holds the dependencies the handlers close over.
type Server struct {
	Platform  platform.Client
	Sessions  *session.Store
	Directory *directory.Service
	Reporter  *report.Reporter

	// Dev enables the local sign-in shortcut when the memory backend is
	// active. Nil in any hosted configuration.
	Dev *memory.Platform

	// Lifecycle tunes peer-side deletion timings; the zero value takes the
	// production defaults.
	Lifecycle room.LifecycleConfig

	// StaticDir is where the presentational shell lives.
	StaticDir string
}

// Router assembles the full URL surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(rateLimit(rate.Every(time.Second/20), 40))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	}

	// Pages.
	r.With(s.requirePage).Get("/", s.serveIndex)
	r.Get("/login", s.serveLogin)
	r.With(s.requirePage).Get("/chatroom/{token}", s.serveRoomPage)

	// Session endpoints.
	r.Post("/auth/session", s.createSession)
	r.Post("/auth/logout", s.logout)
	if s.Dev != nil {
		r.Post("/auth/dev-login", s.devLogin)
	}

	// JSON API.
	r.Route("/api", func(api chi.Router) {
		api.Use(s.requireUser)
		api.Get("/me", s.serveMe)
		api.Post("/rooms", s.createRoom)
		api.Post("/rooms/join", s.joinRoom)
		api.Route("/chatroom/{token}", func(rm chi.Router) {
			rm.Get("/messages", s.listMessages)
			rm.Post("/messages", s.sendMessage)
			rm.Delete("/", s.deleteRoom)
			rm.Get("/ws", s.serveWs)
		})
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError pushes the failure through the report boundary and answers with
// the uniform feedback payload.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	fb := s.Reporter.Report(r.Context(), op, err)
	s.writeJSON(w, report.HTTPStatus(fb.Kind), fb)
}
