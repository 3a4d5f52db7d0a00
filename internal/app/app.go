package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/specialistvlad/nodular/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and metrics registry.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Metrics collectors registered.")

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		registry: reg,
		metrics:  collector,
	}, nil
}

// graphOptions translates the configuration into graph options.
func (a *App) graphOptions() []graph.Option {
	opts := []graph.Option{graph.WithHooks(a.metrics.Hooks())}
	if a.config.ReentrantWalk {
		opts = append(opts, graph.WithReentrantWalk())
	}
	if a.config.SilentBind {
		opts = append(opts, graph.WithSilentBind())
	}
	return opts
}
