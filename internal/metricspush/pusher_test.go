package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "scheduler_job_runs_total", Help: "runs"}, []string{"job_name"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "scheduler_run_loop_lag_seconds", Help: "lag"})
	reg.MustRegister(runs, lag)
	runs.WithLabelValues("hourly_summary").Add(3)
	lag.Observe(0.5)
	return reg
}

func TestNewPusher(t *testing.T) {
	log := zaptest.NewLogger(t)

	assert.Nil(t, NewPusher(config.Config{}, log))

	cfg := config.Config{AppName: "orderdesk-scheduler", Environment: "test"}
	cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterPrometheusPushgateway, Endpoint: "http://gateway:9091"}
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterPrometheusRemoteWrite, Endpoint: "http://prom:9090/api/v1/write"}
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterPrometheusRemoteWrite, Endpoint: "not a url"}
	assert.Nil(t, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Exporter: "statsd", Endpoint: "udp://x"}
	assert.Nil(t, NewPusher(cfg, log))
}

func TestRemoteWritePush(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
		body    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		headers = r.Header.Clone()
		body = raw
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	payload, err := snappy.Decode(nil, body)
	require.NoError(t, err)
	var req prompb.WriteRequest
	require.NoError(t, req.Unmarshal(payload))

	require.Len(t, req.Timeseries, 1)
	series := req.Timeseries[0]
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "scheduler_job_runs_total"},
		{Name: "job_name", Value: "hourly_summary"},
	}, series.Labels)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 3.0, series.Samples[0].Value)
	assert.Equal(t, pusher.now().UnixMilli(), series.Samples[0].Timestamp)
}

func TestRemoteWritePushReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushgatewayPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method = r.Method
		path = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "orderdesk-scheduler", map[string]string{"environment": "test", "blank": " "})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/orderdesk-scheduler/environment/test", path)
}

func TestPushgatewayRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://gateway:9091", " ", nil).Push(context.Background(), testRegistry(t))
	assert.EqualError(t, err, "pushgateway job is required")
}

func TestProcessMetricsGatherer(t *testing.T) {
	process := NewProcessMetrics(config.Config{AppName: "orderdesk", AppVersion: "1.2.3"})
	process.refresh(time.Unix(1790000000, 0))

	families, err := process.registry.Gather()
	require.NoError(t, err)

	names := make(map[string]float64)
	for _, family := range families {
		names[family.GetName()] = family.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 1.0, names["orderdesk_build_info"])
	assert.Equal(t, 1790000000.0, names["orderdesk_metrics_last_push_timestamp_seconds"])
	assert.Greater(t, names["orderdesk_process_memory_bytes"], 0.0)
}
