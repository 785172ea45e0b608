package otel

import (
	"fmt"

	"github.com/fluxorio/arquebus/pkg/config"
)

// Config configures OpenTelemetry
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Exporter is the exporter type: "jaeger", "zipkin", "stdout", "none"
	Exporter string

	// Endpoint is the exporter endpoint URL; empty uses the exporter's local default
	Endpoint string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// SampleRate is the sampling rate (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns a default OpenTelemetry configuration
func DefaultConfig() Config {
	return Config{
		ServiceName:    "arquebus",
		ServiceVersion: "dev",
		Exporter:       "none",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// FromTracing builds a Config from the tracing section of the application config
func FromTracing(t config.TracingConfig, version string) Config {
	c := DefaultConfig()
	if t.ServiceName != "" {
		c.ServiceName = t.ServiceName
	}
	if t.Exporter != "" {
		c.Exporter = t.Exporter
	}
	c.Endpoint = t.Endpoint
	c.SampleRate = t.SampleRate
	if version != "" {
		c.ServiceVersion = version
	}
	return c
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if c.SampleRate < 0.0 || c.SampleRate > 1.0 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0")
	}
	switch c.Exporter {
	case "jaeger", "zipkin", "stdout", "none":
	default:
		return fmt.Errorf("unsupported exporter: %s", c.Exporter)
	}
	return nil
}
