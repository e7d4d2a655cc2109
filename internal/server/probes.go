package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

func (s *Server) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// Ready reports 503 until the database answers a ping.
func (s *Server) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := s.pingDB(ctx); err != nil {
		s.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "database": "connected"})
}

func (s *Server) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
