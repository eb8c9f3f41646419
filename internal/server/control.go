package server

import (
	"encoding/json"
	"net/http"

	"github.com/jpalmerr/danmaku/internal/feeder"
)

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// handleControl applies pause, resume or clear.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	if !s.control(action) {
		http.Error(w, "unknown action: "+action, http.StatusNotFound)
		return
	}
	s.logger.Info("control", "action", action)
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

// control runs a named control action, reporting whether it was known.
func (s *Server) control(action string) bool {
	switch action {
	case "pause":
		s.engine.Pause()
	case "resume":
		s.engine.Resume()
	case "clear":
		s.engine.ClearScreen()
	default:
		return false
	}
	return true
}

// handleResize updates the display size and rebuilds the lanes.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}

	s.resize(req.Width, req.Height)
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

// resize applies a new display size. Reports of an unchanged size are
// ignored so that repeated resize events do not clear the display.
func (s *Server) resize(width, height float64) {
	s.resizeMu.Lock()
	defer s.resizeMu.Unlock()

	if w, h := s.display.Size(); w == width && h == height {
		return
	}
	s.display.SetSize(width, height)
	s.engine.Resize()
}

// handleVisibility reports the overlay page being hidden or shown.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.engine.SetVisible(!req.Hidden)
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns the scheduler counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

// handleSources returns the status of every remote feed source.
func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	out := []feeder.SourceStatus{}
	if s.sources != nil {
		out = s.sources.Sources()
	}
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, out)
}
