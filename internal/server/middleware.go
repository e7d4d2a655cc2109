package server

import (
	"context"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"go.uber.org/zap"
)

const rateLimitReasonOrderRate = "order-rate"

// AuthRequired resolves the session token to a principal and stores it on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !s.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context, token string) bool {
	actor, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return false
	}

	ctx := principal.WithContext(c.Request.Context(), actor)
	ctx = obscontext.WithActor(ctx, string(actor.Role), actor.ID.String())
	c.Request = c.Request.WithContext(ctx)
	return true
}

func actorFromContext(c *gin.Context) (principal.Principal, bool) {
	return principal.FromContext(c.Request.Context())
}

// RequirePermission gates a route on the policy table. Collection routes
// act on the caller's own records, so the caller is passed as owner and the
// services narrow the rows further.
func (s *Server) RequirePermission(action authorization.Action, resource authorization.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		owner := actor.ID
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, action, resource, &owner); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !actor.IsAdmin() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// OrderRateLimit applies the per-user token bucket to order admission. A
// limiter error fails closed.
func (s *Server) OrderRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.orderLimiter.Enabled() {
			c.Next()
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		result, err := s.orderLimiter.Allow(ctx, actor.ID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("order rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			denyRateLimit(ctx, c, retryAfter, s)
			return
		}
		c.Next()
	}
}

func denyRateLimit(ctx context.Context, c *gin.Context, retryAfter int, s *Server) {
	logger.FromContext(ctx).Warn("order rate limit exceeded",
		zap.String("reason", rateLimitReasonOrderRate),
		zap.Int("retry_after_seconds", retryAfter),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, c.FullPath(), rateLimitReasonOrderRate)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", rateLimitReasonOrderRate)
	AbortWithError(c, ErrRateLimited)
}
