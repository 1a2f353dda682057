package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// streamEmotion pushes each new fused record to the client until either side goes away.
func (s *Server) streamEmotion(w http.ResponseWriter, r *http.Request) {
	if !s.emotionsReady(w) {
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger(r).WithError(err).Warn("failed to upgrade to websocket")
		return
	}
	defer ws.Close()

	// The read loop only exists to notice the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.StreamPoll)
	defer ticker.Stop()
	var last time.Time
	for {
		if cur, ok := s.emotions.Current(); ok && cur.Timestamp.After(last) {
			last = cur.Timestamp
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(fused(cur)); err != nil {
				s.logger(r).WithError(err).Debug("emotion stream closed")
				return
			}
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}
	}
}
