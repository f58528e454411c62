package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ShayCichocki/ralphd/internal/broadcast"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// The daemon binds loopback by default; cross-origin policy is left to
// whatever fronts it when exposed further.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type eventFrame struct {
	Channel string       `json:"channel"`
	Event   models.Event `json:"event"`
}

type systemFrame struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
	Dropped int    `json:"dropped,omitempty"`
}

type progressFrame struct {
	Channel  string `json:"channel"`
	ThreadID string `json:"threadId"`
	Content  string `json:"content"`
}

// frameFor translates a hub message into its wire envelope. Returns nil for
// a message with nothing set.
func frameFor(m broadcast.Message) any {
	switch {
	case m.Dropped > 0:
		return systemFrame{Channel: "system", Message: "lagged", Dropped: m.Dropped}
	case m.Progress != nil:
		return progressFrame{Channel: "progress", ThreadID: m.Progress.ThreadID, Content: m.Progress.Content}
	case m.Event != nil:
		return eventFrame{Channel: "events", Event: *m.Event}
	default:
		return nil
	}
}

// handleWS upgrades the connection and forwards hub messages until the peer
// disconnects or the hub closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.log.Debug("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	msgs, cancel := s.plane.Hub().Subscribe()
	defer cancel()

	if err := conn.WriteJSON(systemFrame{Channel: "system", Message: "connected"}); err != nil {
		return
	}

	// Subscribers send nothing meaningful; drain reads so close frames and
	// dead peers are noticed.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-peerGone:
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			frame := frameFor(m)
			if frame == nil {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}
