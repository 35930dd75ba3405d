package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spindown/spindown-server-go/internal/errs"
	"github.com/spindown/spindown-server-go/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	// Cross-origin policy is enforced by the CORS middleware; the
	// upgrade request already carries a valid actor token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribe upgrades the connection and streams room notifications until
// the client disconnects. Participants only.
func (s *Server) subscribe(c *gin.Context) {
	roomID := c.Param("id")
	p := actor(c)

	if !s.rooms.IsParticipant(roomID, p.ID) {
		fail(c, errs.Permission("not a participant of this game"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return
	}

	sub := s.hub.Subscribe(roomID, p.ID)

	s.logger.Info("subscriber connected",
		zap.String("room_id", roomID),
		zap.String("participant_id", p.ID),
	)

	// Drain incoming frames so close and pong frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Unsubscribe()
				return
			}
		}
	}()

	s.writePump(conn, sub, roomID, p.ID)
}

// writePump forwards notifications in order. Returns when the
// subscription closes (room deleted, unsubscribe) or a write fails.
func (s *Server) writePump(conn *websocket.Conn, sub *events.Subscription, roomID, participantID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Unsubscribe()
		conn.Close()
		s.logger.Info("subscriber disconnected",
			zap.String("room_id", roomID),
			zap.String("participant_id", participantID),
		)
	}()

	for {
		select {
		case n, ok := <-sub.C:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
