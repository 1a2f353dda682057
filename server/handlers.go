package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.com/maastricht-university/companion/emotion"
	"github.com/maastricht-university/companion/router"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	running := s.emotions != nil && s.emotions.Running()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "fusion": running})
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := s.chat.Handle(r.Context(), req)
	switch {
	case errors.Is(err, router.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	case err != nil:
		s.logger(r).WithError(err).Error("chat failed")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseWindow accepts Go durations ("90s", "5m") or plain seconds. Empty means all history.
func parseWindow(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs < 0 {
			return 0, errors.New("window must not be negative")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, "window")
	}
	if d < 0 {
		return 0, errors.New("window must not be negative")
	}
	return d, nil
}

func (s *Server) emotionsReady(w http.ResponseWriter) bool {
	if s.emotions == nil {
		writeError(w, http.StatusServiceUnavailable, "Emotion fusion is disabled")
		return false
	}
	return true
}

func (s *Server) emotionCurrent(w http.ResponseWriter, r *http.Request) {
	if !s.emotionsReady(w) {
		return
	}
	cur, ok := s.emotions.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, fused(cur))
}

func (s *Server) emotionHistory(w http.ResponseWriter, r *http.Request) {
	if !s.emotionsReady(w) {
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := s.emotions.History(window)
	out := make([]fusedView, 0, len(records))
	for _, rec := range records {
		out = append(out, fused(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) emotionStats(w http.ResponseWriter, r *http.Request) {
	if !s.emotionsReady(w) {
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.emotions.Stats(window))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.routines.Users())
}

func (s *Server) userRoutine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.routines.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown user")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// fusedView is the wire shape of a CombinedEmotion with its derived fields.
type fusedView struct {
	emotion.CombinedEmotion
	Dominant   string  `json:"dominant"`
	Confidence float64 `json:"confidence"`
}

func fused(c emotion.CombinedEmotion) fusedView {
	label, _ := c.Dominant()
	return fusedView{CombinedEmotion: c, Dominant: label, Confidence: c.Confidence()}
}
