package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/counter/internal/config"
	"github.com/vango-dev/counter/pkg/counter"
	"github.com/vango-dev/counter/pkg/devtools"
	"github.com/vango-dev/counter/pkg/persist"
	"github.com/vango-dev/counter/pkg/store"
)

// app is a counter wired to its storage and inspectors.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	storage   persist.Storage
	persister *persist.Persister[counter.State]
	counter   *counter.Counter

	// Set only when serving.
	hub      *devtools.Hub
	registry *prometheus.Registry
}

// openApp opens storage, hydrates a counter from it and attaches the
// configured inspectors. serving adds the hub and Prometheus inspectors.
func openApp(cfg *config.Config, logger *slog.Logger, serving bool) (*app, error) {
	storage, err := cfg.OpenStorage()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, storage: storage}

	var inspectors devtools.Multi
	if cfg.Devtools.Log {
		inspectors = append(inspectors, devtools.NewLogInspector(logger))
	}
	if cfg.Tracing.Enabled {
		inspectors = append(inspectors, devtools.NewTracer(nil, cfg.Tracing.TracerName))
	}
	if serving {
		if cfg.Devtools.Enabled {
			a.hub = devtools.NewHub(devtools.HubConfig{History: cfg.Devtools.History, Logger: logger})
			inspectors = append(inspectors, a.hub)
		}
		if cfg.Metrics.Enabled {
			a.registry = prometheus.NewRegistry()
			a.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m, err := devtools.NewMetrics(devtools.MetricsConfig{
				Namespace: cfg.Metrics.Namespace,
				Registry:  a.registry,
			})
			if err != nil {
				storage.Close()
				return nil, err
			}
			inspectors = append(inspectors, m)
		}
	}

	a.persister = persist.Middleware[counter.State](storage,
		persist.WithName[counter.State](cfg.Persist.Key),
		persist.WithLogger[counter.State](logger),
	)

	var inspector devtools.Inspector
	if len(inspectors) > 0 {
		inspector = inspectors
	}
	a.counter = counter.New(
		store.WithLogger[counter.State](logger),
		store.WithMiddleware[counter.State](
			devtools.Middleware[counter.State](inspector,
				devtools.WithName(cfg.Devtools.Name),
				devtools.WithLogger(logger),
			),
			a.persister,
		),
	)
	return a, nil
}

// Close flushes pending writes and releases storage.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), persist.DefaultTimeout)
	defer cancel()
	err := a.persister.Flush(ctx)
	a.persister.Close()
	if cerr := a.storage.Close(); err == nil {
		err = cerr
	}
	return err
}
