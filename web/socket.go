package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// handleSocket pushes the status every interval until the client goes
// away.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Info("websocket connected", "remote", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("websocket read failed", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.status()); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			s.logger.Info("websocket closed", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}
