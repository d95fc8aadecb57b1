// ABOUTME: The stub command: serves the backend /chat contract locally for demos and development.
// ABOUTME: Flags map onto the stub.* config keys, so env vars and the config file work too.
package main

import (
	"github.com/spf13/cobra"

	"github.com/2389-research/modelselector/stub"
)

func (c *cli) newStubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local stand-in for the workflow backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(false); err != nil {
				return err
			}
			srv := stub.NewServer(stub.Config{
				Addr:       c.cfg.Stub.Addr,
				FailStatus: c.cfg.Stub.FailStatus,
				Latency:    c.cfg.Stub.Latency,
				Logger:     c.logger,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "listen address (default: 127.0.0.1:2390)")
	f.Int("fail-status", 0, "answer every /chat request with this HTTP status")
	f.Duration("latency", 0, "delay before each answer")
	_ = c.v.BindPFlag("stub.addr", f.Lookup("addr"))
	_ = c.v.BindPFlag("stub.fail_status", f.Lookup("fail-status"))
	_ = c.v.BindPFlag("stub.latency", f.Lookup("latency"))
	return cmd
}
