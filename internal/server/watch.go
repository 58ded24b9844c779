package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// watchInterval is how often job snapshots are pushed to watchers.
const watchInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the daemon binds to localhost; cross-origin browser access is not a
	// supported surface
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWatch streams job snapshots over a websocket until the job reaches
// a terminal state or the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// drain client frames so close messages are noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		job, err := s.sync.Status(r.Context())
		if err != nil && !errors.Is(err, vsync.ErrNoJob) {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}
		if job != nil {
			if err := conn.WriteJSON(job); err != nil {
				return
			}
			if job.Status.Terminal() {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return
			}
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
