package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/counter/pkg/server"
	"github.com/vango-dev/counter/pkg/view"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web server with the live counter view.

Routes:
  /             counter page, kept live over /live
  /actions/...  POST increment, decrement or reset
  /state        current state as JSON
  /devtools     inspector WebSocket (devtools.enabled)
  /metrics      Prometheus metrics (metrics.enabled)

Examples:
  counter serve
  counter serve --port=8080
  counter serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				opts.cfg.Server.Port = port
			}
			if host != "" {
				opts.cfg.Server.Host = host
			}
			if err := opts.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from counter.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from counter.json)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	cfg := opts.cfg
	a, err := openApp(cfg, opts.logger, true)
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Address()
	srvCfg.Metrics = cfg.Metrics.Enabled
	srvCfg.MetricsNamespace = cfg.Metrics.Namespace
	srvCfg.Tracing = cfg.Tracing.Enabled
	srvCfg.TracerName = cfg.Tracing.TracerName

	var closeOnce sync.Once
	var closeErr error
	closeApp := func(context.Context) error {
		closeOnce.Do(func() { closeErr = a.Close() })
		return closeErr
	}

	srvOpts := []server.Option{
		server.WithLogger(opts.logger),
		server.WithOnShutdown(closeApp),
	}
	if a.hub != nil {
		srvOpts = append(srvOpts, server.WithHub(a.hub))
	}
	if a.registry != nil {
		srvOpts = append(srvOpts, server.WithRegistry(a.registry))
	}
	srv := server.New(srvCfg, a.counter, srvOpts...)

	out := cmd.OutOrStdout()
	success(out, "Serving %s on http://%s", cfg.Persist.Key, cfg.Address())
	info(out, "backend: %s", cfg.Persist.Backend)
	info(out, "%s", view.NewCounterView(a.counter).Text())
	fmt.Fprintln(out)

	err = srv.Run(ctx)
	// Run skips the shutdown hooks when it fails to listen.
	if cerr := closeApp(ctx); err == nil {
		err = cerr
	}
	return err
}
