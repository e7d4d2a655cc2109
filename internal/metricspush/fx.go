package metricspush

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/orderdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Provide(NewProcessMetrics),
	fx.Invoke(StartWorker),
)

// ProcessMetrics holds gauges describing the pushing process itself.
type ProcessMetrics struct {
	registry    *prometheus.Registry
	buildInfo   *prometheus.GaugeVec
	memoryBytes prometheus.Gauge
	lastPush    prometheus.Gauge
}

func NewProcessMetrics(cfg config.Config) *ProcessMetrics {
	m := &ProcessMetrics{
		registry: prometheus.NewRegistry(),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderdesk_build_info",
			Help: "Build information of the running process.",
		}, []string{"app", "version"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdesk_process_memory_bytes",
			Help: "Bytes of memory obtained from the OS.",
		}),
		lastPush: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderdesk_metrics_last_push_timestamp_seconds",
			Help: "Unix time of the last metrics push attempt.",
		}),
	}
	m.registry.MustRegister(m.buildInfo, m.memoryBytes, m.lastPush)
	m.buildInfo.WithLabelValues(cfg.AppName, cfg.AppVersion).Set(1)
	return m
}

func (m *ProcessMetrics) refresh(now time.Time) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.memoryBytes.Set(float64(stats.Sys))
	m.lastPush.Set(float64(now.Unix()))
}

// Gatherer merges the default registry with the process gauges.
func (m *ProcessMetrics) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{prometheus.DefaultGatherer, m.registry}
}

// StartWorker pushes on the configured interval and once more on stop, so a
// short-lived process still reports its final counters.
func StartWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, process *ProcessMetrics, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("metrics.push")

	interval := cfg.MetricsPush.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	pushOnce := func(ctx context.Context) {
		process.refresh(time.Now())
		pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
		defer cancel()
		if err := pusher.Push(pushCtx, process.Gatherer()); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push worker", zap.String("exporter", cfg.MetricsPush.Exporter), zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx)
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			pushOnce(stopCtx)
			log.Info("stopped metrics push worker")
			return nil
		},
	})
}
