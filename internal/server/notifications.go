package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/orderdesk/internal/notification"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"go.uber.org/zap"
)

const sseHeartbeatInterval = 15 * time.Second

// StreamNotifications pushes admin notification events as server-sent
// events until the client goes away or the hub stops.
func (s *Server) StreamNotifications(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	subscription, err := s.hub.Register(notificationSessionID(c), actor.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	log := logger.FromContext(ctx)
	log.Info("notification stream opened", zap.String("session_id", subscription.SessionID()))
	defer log.Info("notification stream closed", zap.String("session_id", subscription.SessionID()))

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-subscription.Done():
			return
		case event := <-subscription.Events():
			if err := writeNotificationEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeNotificationEvent(w io.Writer, event notification.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.EventID, event.Type, data)
	return err
}

func notificationSessionID(c *gin.Context) string {
	if requestID := obscontext.RequestIDFromContext(c.Request.Context()); requestID != "" {
		return requestID
	}
	return uuid.NewString()
}
