// Package web serves the session over HTTP: a JSON API for the controls
// and a websocket that pushes the live view.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"node.town/tandem/langs"
	"node.town/tandem/session"
)

// Session is the part of the pipeline controller the server drives.
type Session interface {
	Start() bool
	Stop()
	Flush()
	Running() bool
}

type Server struct {
	state    *session.State
	session  Session
	logger   *log.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewServer(state *session.State, s Session, logger *log.Logger) *Server {
	return &Server{
		state:    state,
		session:  s,
		logger:   logger,
		interval: 250 * time.Millisecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Status is the view plus whether a session is running.
type Status struct {
	session.View
	Running bool `json:"running"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleSocket)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/history", s.handleHistory)
		r.Post("/session/start", s.handleStart)
		r.Post("/session/stop", s.handleStop)
		r.Post("/session/flush", s.handleFlush)
		r.Post("/station/{id}/activate", s.handleActivate)
		r.Post("/station/{id}/lang", s.handleLanguage)
		r.Post("/station/{id}/locale", s.handleLocale)
		r.Post("/settings", s.handleSettings)
		r.Post("/calibrate", s.handleCalibrate)
	})
	return r
}

func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) status() Status {
	return Status{View: s.state.Snapshot(), Running: s.session.Running()}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.state.History())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.session.Start() {
		s.logger.Info("session started over http")
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	s.writeJSON(w, s.status())
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.session.Flush()
	s.writeJSON(w, s.status())
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	st, ok := session.ParseStation(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "station must be A or B", http.StatusBadRequest)
		return
	}
	if s.state.SetActiveStation(st) {
		s.session.Flush()
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	s.state.RequestCalibration()
	s.writeJSON(w, s.status())
}

type languageRequest struct {
	Lang string `json:"lang"`
}

// handleLanguage selects a station's language along with its default
// accent. A running session is flushed so audio in the old language is
// not recognized as the new one.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	st, ok := session.ParseStation(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "station must be A or B", http.StatusBadRequest)
		return
	}
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	lang, err := langs.Normalize(req.Lang)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.state.SetStationLanguage(st, lang)
	s.session.Flush()
	s.logger.Info("station language", "station", st, "lang", lang)
	s.writeJSON(w, s.status())
}

type localeRequest struct {
	Locale string `json:"locale"`
}

func (s *Server) handleLocale(w http.ResponseWriter, r *http.Request) {
	st, ok := session.ParseStation(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "station must be A or B", http.StatusBadRequest)
		return
	}
	var req localeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	lang := s.state.Settings().Voice(st).Lang
	if !langs.ValidLocale(lang, req.Locale) {
		http.Error(w, fmt.Sprintf("%q is not an accent of %q", req.Locale, lang), http.StatusBadRequest)
		return
	}
	s.state.SetStationLocale(st, req.Locale)
	s.session.Flush()
	s.logger.Info("station accent", "station", st, "locale", req.Locale)
	s.writeJSON(w, s.status())
}

// settingsRequest carries the sliders and the capture device. Absent
// fields are left alone.
type settingsRequest struct {
	VoiceSpeed  *float64 `json:"voice_speed"`
	Sensitivity *float64 `json:"sensitivity"`
	DeviceID    *string  `json:"device_id"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.VoiceSpeed != nil {
		s.state.SetVoiceSpeed(*req.VoiceSpeed)
	}
	if req.Sensitivity != nil {
		s.state.SetSensitivity(*req.Sensitivity)
	}
	if req.DeviceID != nil && *req.DeviceID != s.state.Settings().DeviceID {
		s.state.SetDevice(*req.DeviceID)
		// The device is held for the whole session.
		s.session.Flush()
	}
	s.writeJSON(w, s.status())
}
