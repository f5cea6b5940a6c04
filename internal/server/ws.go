package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/api"
	"scribe/internal/logging"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsSubscriberSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The HTTP surface is already open to configured origins via CORS;
	// websocket clients include the CLI, which sends no Origin at all.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebsocket streams progress events to the client as JSON frames.
// Delivery is best effort: a client that cannot keep up misses events and
// is expected to resync from the job snapshot.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.URL.Query().Get("job"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(jobID, wsSubscriberSize)
	defer s.hub.Unsubscribe(sub)

	// The client starts from the latest snapshot so a fresh watcher does
	// not render an empty state.
	if jobID != "" {
		if latest, ok := s.hub.Latest(jobID); ok {
			if err := s.writeEvent(conn, api.FromProgressEvent(latest)); err != nil {
				return
			}
		}
	}

	// Reader goroutine: we expect no client frames, but reading is what
	// surfaces close frames and dead peers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := s.writeEvent(conn, api.FromProgressEvent(evt)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt api.ProgressEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(evt)
}
