package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/auth/session"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability"
	obslogger "github.com/smallbiznis/orderdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/orderdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/orderdesk/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	skudomain "github.com/smallbiznis/orderdesk/internal/sku/domain"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/internal/summary/report"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Module serves the HTTP API. Domain modules are composed by the binary.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP binds the engine to the configured address for the app lifetime.
// Write timeouts are left unset so the notification streams stay open.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	customerSvc  customerdomain.Service
	skuSvc       skudomain.Service
	orderSvc     orderdomain.Service
	summarySvc   summarydomain.Service
	reports      report.Renderer
	hub          *notification.Hub
	orderLimiter *ratelimit.OrderLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	CustomerSvc  customerdomain.Service
	SKUSvc       skudomain.Service
	OrderSvc     orderdomain.Service
	SummarySvc   summarydomain.Service
	Reports      report.Renderer
	Hub          *notification.Hub
	OrderLimiter *ratelimit.OrderLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("http.server"),
		clock:        p.Clock,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		customerSvc:  p.CustomerSvc,
		skuSvc:       p.SKUSvc,
		orderSvc:     p.OrderSvc,
		summarySvc:   p.SummarySvc,
		reports:      p.Reports,
		hub:          p.Hub,
		orderLimiter: p.OrderLimiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerProbeRoutes()
	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerProbeRoutes() {
	s.engine.GET("/live", s.Live)
	s.engine.GET("/ready", s.Ready)
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.RequirePermission(authorization.ActionRead, authorization.ResourceUser), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Customers --------
	api.POST("/customers", s.RequirePermission(authorization.ActionCreate, authorization.ResourceCustomer), s.CreateCustomer)
	api.GET("/customers", s.RequirePermission(authorization.ActionRead, authorization.ResourceCustomer), s.ListCustomers)

	// -------- SKUs --------
	api.POST("/skus", s.RequirePermission(authorization.ActionCreate, authorization.ResourceSKU), s.CreateSKU)
	api.GET("/skus", s.RequirePermission(authorization.ActionRead, authorization.ResourceSKU), s.ListSKUs)

	// -------- Orders --------
	api.POST("/orders", s.RequirePermission(authorization.ActionCreate, authorization.ResourceOrder), s.OrderRateLimit(), s.CreateOrder)
	api.GET("/orders", s.RequirePermission(authorization.ActionRead, authorization.ResourceOrder), s.ListOrders)
}

func (s *Server) registerAdminRoutes() {
	reports := s.engine.Group("/api/reports", s.AuthRequired(), s.RequirePermission(authorization.ActionRead, authorization.ResourceSummary))
	reports.GET("/hourly-summaries", s.ListHourlySummaries)
	reports.GET("/hourly-summaries.pdf", s.DownloadHourlySummariesPDF)

	s.engine.GET("/api/notifications/stream", s.AuthRequired(), s.RequireAdmin(), s.StreamNotifications)
	s.engine.GET("/ws/admin", s.AdminWebsocket)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
