package main

import (
	"context"

	"github.com/srujan00123/shiprocket-fulfillment/internal/config"
	"github.com/srujan00123/shiprocket-fulfillment/internal/telemetry"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper"
	"github.com/srujan00123/shiprocket-fulfillment/pkg/shipper/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger) *shipper.Registry {
	registry := shipper.NewRegistry()

	var tracer trace.Tracer
	if cfg.OTELEnabled {
		tracer = otel.GetTracerProvider().Tracer(cfg.ServiceName)
	}

	if cfg.ShiprocketEnabled {
		sr := shiprocket.New(shiprocket.Config{
			Email:          cfg.ShiprocketEmail,
			Password:       cfg.ShiprocketPassword,
			BaseURL:        cfg.ShiprocketBaseURL,
			PickupLocation: cfg.ShiprocketPickupLocation,
			COD:            cfg.ShiprocketCOD,
			Timeout:        cfg.ShiprocketTimeout,
			UseMock:        cfg.ShiprocketUseMock,
		}, logger, tracer)
		registry.Register(sr)
	}

	return registry
}
