package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/jpalmerr/danmaku/internal/store"
)

type submitRequest struct {
	Content string `json:"content"`
}

// handleListMessages returns every stored message in the list format.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, store.Listings(msgs))
}

// handleSubmit saves a message posted to the page and answers with a bare
// status.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.save(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCreateMessage saves a message and returns it as JSON.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.save(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

// save decodes and stores the submitted content. On failure it writes the
// error response and reports false.
func (s *Server) save(w http.ResponseWriter, r *http.Request) (store.Message, bool) {
	content, err := decodeContent(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return store.Message{}, false
	}

	msg, err := s.store.Save(r.Context(), content)
	switch {
	case errors.Is(err, store.ErrEmptyContent):
		http.Error(w, "content is required", http.StatusBadRequest)
		return store.Message{}, false
	case err != nil:
		s.logger.Error("failed to save message", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return store.Message{}, false
	}

	s.logger.Debug("message saved", "id", msg.ID)
	return msg, true
}

// decodeContent reads the content field from a JSON or form body.
func decodeContent(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid JSON body")
		}
		return req.Content, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", errors.New("invalid form body")
	}
	return r.PostFormValue("content"), nil
}

// writeJSON encodes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
