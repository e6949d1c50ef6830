package main

import (
	"context"

	"github.com/tournevent/ratebridge/internal/config"
	"github.com/tournevent/ratebridge/internal/telemetry"
	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/tournevent/ratebridge/pkg/shipper/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load(".env")
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(telemetry.LoggerConfig{
		Level:       cfg.LogLevel,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
	})
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes())
}

func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *shipper.Registry {
	registry := shipper.NewRegistry()

	// Register enabled carriers
	if cfg.UPSEnabled {
		client := ups.New(ups.Config{
			BaseURL:       cfg.UPSBaseURL,
			ClientID:      cfg.UPSClientID,
			ClientSecret:  cfg.UPSClientSecret,
			RatingVersion: cfg.UPSRatingVersion,
			Timeout:       cfg.UPSTimeout,
			UseMock:       cfg.UPSUseMock,
		}, logger, tracer)
		registry.Register(client)
	}

	return registry
}
