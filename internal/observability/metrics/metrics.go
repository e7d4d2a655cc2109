package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes order pipeline instruments.
type Metrics struct {
	ordersAdmitted         metric.Int64Counter
	orderAdmissionFailures metric.Int64Counter
	notificationsDelivered metric.Int64Counter
	notificationsDropped   metric.Int64Counter
	rateLimitDenied        metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "orderdesk"
	}
	meter := provider.Meter(name)

	ordersAdmitted, err := meter.Int64Counter("orderdesk_orders_admitted_total")
	if err != nil {
		return nil, err
	}
	orderAdmissionFailures, err := meter.Int64Counter("orderdesk_order_admission_failures_total")
	if err != nil {
		return nil, err
	}
	notificationsDelivered, err := meter.Int64Counter("orderdesk_notifications_delivered_total")
	if err != nil {
		return nil, err
	}
	notificationsDropped, err := meter.Int64Counter("orderdesk_notifications_dropped_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("orderdesk_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersAdmitted:         ordersAdmitted,
		orderAdmissionFailures: orderAdmissionFailures,
		notificationsDelivered: notificationsDelivered,
		notificationsDropped:   notificationsDropped,
		rateLimitDenied:        rateLimitDenied,
	}, nil
}

func (m *Metrics) RecordOrderAdmitted(ctx context.Context, role string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.ordersAdmitted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderAdmissionFailure counts rejected admissions by low-cardinality reason.
func (m *Metrics) RecordOrderAdmissionFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.orderAdmissionFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNotificationDelivered(ctx context.Context, eventType string, sessions int) {
	if m == nil || sessions <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.notificationsDelivered.Add(ctx, int64(sessions), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNotificationDropped(ctx context.Context, eventType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.notificationsDropped.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"role":        {},
	"endpoint":    {},
	"status_code": {},
	"event_type":  {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
