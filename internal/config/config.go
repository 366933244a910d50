package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Shiprocket
	ShiprocketEmail          string        `envconfig:"SHIPROCKET_EMAIL"`
	ShiprocketPassword       string        `envconfig:"SHIPROCKET_PASSWORD"`
	ShiprocketBaseURL        string        `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	ShiprocketPickupLocation string        `envconfig:"SHIPROCKET_PICKUP_LOCATION" default:"Primary"`
	ShiprocketCOD            bool          `envconfig:"SHIPROCKET_COD" default:"false"`
	ShiprocketTimeout        time.Duration `envconfig:"SHIPROCKET_TIMEOUT" default:"10s"`
	ShiprocketEnabled        bool          `envconfig:"SHIPROCKET_ENABLED" default:"true"`
	ShiprocketUseMock        bool          `envconfig:"SHIPROCKET_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shiprocket-fulfillment"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("shiprocket.enabled", c.ShiprocketEnabled),
		attribute.Bool("shiprocket.use_mock", c.ShiprocketUseMock),
	}
}
