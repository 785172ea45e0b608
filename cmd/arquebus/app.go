package main

import (
	"context"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/config"
	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/observability/otel"
	"github.com/fluxorio/arquebus/pkg/observability/prometheus"
)

// app holds a configured bus and its supporting services
type app struct {
	cfg      config.Config
	logger   core.Logger
	registry *prom.Registry
	bus      *bus.Bus[string, int]
	closers  []func(context.Context)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newApp wires logging, tracing, metrics and the executor into a bus
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: core.NewLogger(cfg.LoggerConfig()),
	}

	if err := otel.Initialize(ctx, otel.FromTracing(cfg.Tracing, version)); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := otel.Shutdown(ctx); err != nil {
			a.logger.Error("tracing shutdown: ", err)
		}
	})

	var observer bus.Observer
	if cfg.Metrics.Enabled {
		a.registry = prom.NewRegistry()
		metrics, err := prometheus.NewMetrics(a.registry, cfg.Metrics.Namespace)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		observer = metrics
	}

	executor, stop := cfg.Bus.NewExecutor(a.logger)
	a.closers = append(a.closers, stop)

	a.bus = bus.New[string, int](cfg.BusOptions(a.logger, observer, executor)...)
	return a, nil
}

// metricsHandler returns nil when metrics are disabled
func (a *app) metricsHandler() fasthttp.RequestHandler {
	if a.registry == nil {
		return nil
	}
	return prometheus.FastHTTPHandler(a.registry)
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}
