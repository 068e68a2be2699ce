package panel

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"atlas/internal/logging"
	"atlas/internal/workflow"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The panel binds to loopback by default and the token gates remote use.
	CheckOrigin: func(*http.Request) bool { return true },
}

// snapshotMessage is the single frame type pushed to websocket clients.
type snapshotMessage struct {
	Type     string            `json:"type"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

// handleWebSocket streams every store snapshot until the client goes away.
// A subscription starts with the current snapshot, so a fresh view needs no
// extra fetch.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.session.Store().Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	s.logger.Debug("websocket client connected", logging.String("remote", r.RemoteAddr))

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := writeSnapshot(conn, snap); err != nil {
				s.logger.Debug("websocket write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// signals when the connection drops.
func (s *Server) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed", logging.Error(err))
			}
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap workflow.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snapshotMessage{Type: "snapshot", Snapshot: snap})
}
