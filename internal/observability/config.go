package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/config"
)

// Config holds logging, tracing and metrics settings for the process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig derives observability settings from the application config,
// letting the standard OTEL_* variables override it.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "orderdesk"
	}

	protocol := strings.ToLower(lookup("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = strings.ToLower(traces)
	}

	ratio, err := strconv.ParseFloat(lookup("OTEL_SAMPLING_RATIO", "0.1"), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		ratio = 0.1
	}

	enabled := true
	switch strings.ToLower(lookup("OTEL_ENABLED", "true")) {
	case "0", "false", "no", "off":
		enabled = false
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          lookup("DEPLOYMENT_ENV", cfg.Environment),
		Version:              lookup("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:             strings.ToLower(lookup("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(lookup("LOG_FORMAT", "json")),
		OtelEnabled:          enabled && strings.TrimSpace(lookup("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)) != "",
		OtelExporterEndpoint: lookup("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug reports whether verbose diagnostics should be emitted.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func lookup(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(def)
}
