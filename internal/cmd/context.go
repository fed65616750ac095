package cmd

import (
	"context"

	"github.com/homiodev/homio-hquery/internal/config"
	"github.com/homiodev/homio-hquery/internal/engine"
	"github.com/homiodev/homio-hquery/internal/metrics"
)

type contextKey string

const (
	configKey   contextKey = "config"
	loaderKey   contextKey = "loader"
	registryKey contextKey = "registry"
	metricsKey  contextKey = "metrics"
)

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext retrieves the config from context.
func ConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}

// WithLoader adds the config loader to the context.
func WithLoader(ctx context.Context, loader *config.Loader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// LoaderFromContext retrieves the config loader from context.
func LoaderFromContext(ctx context.Context) *config.Loader {
	loader, ok := ctx.Value(loaderKey).(*config.Loader)
	if !ok {
		return nil
	}
	return loader
}

// WithRegistry adds the query registry to the context.
func WithRegistry(ctx context.Context, reg *engine.Registry) context.Context {
	return context.WithValue(ctx, registryKey, reg)
}

// RegistryFromContext retrieves the query registry from context.
func RegistryFromContext(ctx context.Context) *engine.Registry {
	reg, ok := ctx.Value(registryKey).(*engine.Registry)
	if !ok {
		return nil
	}
	return reg
}

// WithMetrics adds the metrics collector to the context.
func WithMetrics(ctx context.Context, m *metrics.Metrics) context.Context {
	return context.WithValue(ctx, metricsKey, m)
}

// MetricsFromContext retrieves the metrics collector from context.
func MetricsFromContext(ctx context.Context) *metrics.Metrics {
	m, ok := ctx.Value(metricsKey).(*metrics.Metrics)
	if !ok {
		return nil
	}
	return m
}
