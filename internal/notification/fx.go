package notification

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.hub",
	fx.Provide(NewHub),
	fx.Provide(func(h *Hub) Notifier { return h }),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
	Redis     *redis.Client    `optional:"true"`
}

func NewHub(p Params) *Hub {
	hub := New(Options{
		QueueSize: p.Config.Notification.QueueSize,
		Redis:     p.Redis,
		Metrics:   p.Metrics,
		Log:       p.Log,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return hub.Start(ctx)
		},
		OnStop: func(context.Context) error {
			hub.Stop()
			return nil
		},
	})
	return hub
}
