// ABOUTME: The web command: serves the browser visualizer, optionally with the stub backend alongside.
// ABOUTME: Both servers run under one errgroup so either failing or an interrupt stops the other.
package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/modelselector/stub"
	"github.com/2389-research/modelselector/web"
)

func (c *cli) newWebCmd() *cobra.Command {
	var withStub bool
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the visualizer in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWeb(cmd, withStub)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: 127.0.0.1:2389)")
	cmd.Flags().BoolVar(&withStub, "with-stub", false, "also serve the stub backend and point the client at it")
	_ = c.v.BindPFlag("web.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (c *cli) runWeb(cmd *cobra.Command, withStub bool) error {
	if err := c.setup(false); err != nil {
		return err
	}
	catalog, err := c.cfg.Catalog()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	baseURL := ""
	if withStub {
		stubSrv := stub.NewServer(stub.Config{
			Addr:       c.cfg.Stub.Addr,
			FailStatus: c.cfg.Stub.FailStatus,
			Latency:    c.cfg.Stub.Latency,
			Logger:     c.logger.Named("stub"),
		})
		baseURL = "http://" + c.cfg.Stub.Addr
		g.Go(func() error { return stubSrv.ListenAndServe(ctx) })
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := web.NewServer(web.ServerConfig{
		Addr:        c.cfg.Web.Addr,
		Client:      c.newClient(baseURL),
		ThinkDelay:  c.cfg.Reveal.ThinkDelay,
		OutputDelay: c.cfg.Reveal.OutputDelay,
		Catalog:     catalog,
		SessionTTL:  c.cfg.Web.SessionTTL,
		MaxSessions: c.cfg.Web.MaxSessions,
		Logger:      c.logger,
		Registry:    reg,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	g.Go(func() error { return srv.ListenAndServe(ctx) })

	c.logger.Info("web started",
		zap.String("addr", c.cfg.Web.Addr),
		zap.Bool("with_stub", withStub),
	)
	return g.Wait()
}
