package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second

	// Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	wsMaxMessageSize = 512
)

// Sessions are authenticated by token, so the origin is not checked.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AdminWebsocket authenticates the token query parameter, rejects non-admins
// before the upgrade and then streams notification events.
func (s *Server) AdminWebsocket(c *gin.Context) {
	token, ok := s.sessions.ReadQueryToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !s.authenticate(c, token) {
		return
	}
	actor, _ := actorFromContext(c)
	if !actor.IsAdmin() {
		AbortWithError(c, ErrForbidden)
		return
	}

	subscription, err := s.hub.Register(notificationSessionID(c), actor.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	log := logger.FromContext(c.Request.Context()).With(zap.String("session_id", subscription.SessionID()))
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		subscription.Close()
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	log.Info("admin websocket connected")

	closed := make(chan struct{})
	go readPump(conn, closed, log)
	writePump(conn, subscription, closed)

	log.Info("admin websocket disconnected")
}

// readPump only watches for pongs and the close frame. Client messages are
// discarded.
func readPump(conn *websocket.Conn, closed chan<- struct{}, log *zap.Logger) {
	defer close(closed)

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, subscription *notification.Subscription, closed <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		subscription.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case <-closed:
			return
		case <-subscription.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case event := <-subscription.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
