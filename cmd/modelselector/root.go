// ABOUTME: Cobra command tree and the shared setup every command runs: config, logger and workflow client.
// ABOUTME: Flags are bound to viper keys so flags, env vars and the config file share one precedence order.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/2389-research/modelselector/config"
	"github.com/2389-research/modelselector/logging"
	"github.com/2389-research/modelselector/workflow"
)

// cli holds state shared by all commands of one invocation.
type cli struct {
	v          *viper.Viper
	configFile string
	stdout     io.Writer
	stderr     io.Writer

	cfg     *config.Config
	logger  *zap.Logger
	cleanup func()
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *cli) {
	c := &cli{v: config.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "modelselector",
		Short: "Smart Model Selector: watch a query move through Plan, Think and Output",
		Long: `modelselector sends a task description to the workflow backend and
reveals its three stages one after another: Plan as soon as the answer
arrives, then Think, then Output.

Run without a subcommand to start the terminal UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (default: modelselector.yaml in . or $XDG_CONFIG_HOME/modelselector)")
	pf.String("base-url", "", "workflow backend base URL")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "log file (default: stderr; the TUI logs to the data directory)")
	_ = c.v.BindPFlag("backend.base_url", pf.Lookup("base-url"))
	_ = c.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = c.v.BindPFlag("log.file", pf.Lookup("log-file"))

	root.AddCommand(
		c.newTUICmd(),
		c.newWebCmd(),
		c.newAskCmd(),
		c.newStubCmd(),
		newVersionCmd(),
	)
	return root, c
}

// finish logs a failed command and flushes the logger. It runs whether or
// not the command succeeded, and is a no-op when setup never ran.
func (c *cli) finish(err error) {
	if c.logger == nil {
		return
	}
	if err != nil {
		c.logger.Error("command failed", zap.Error(err))
	}
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}

// setup loads configuration and builds the logger. When logToFile is set
// and no log file is configured, logs go to the default data directory.
func (c *cli) setup(logToFile bool) error {
	cfg, used, err := config.Load(c.v, c.configFile)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	}
	if logToFile && logCfg.File == "" {
		path, err := config.DefaultLogFile()
		if err != nil {
			return fmt.Errorf("resolving log file: %w", err)
		}
		logCfg.File = path
	}
	logger, cleanup, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	c.cleanup = cleanup
	if used != "" {
		logger.Info("config loaded", zap.String("file", used))
	}
	return nil
}

// newClient builds the workflow client against baseURL, or the configured
// backend when baseURL is empty.
func (c *cli) newClient(baseURL string) *workflow.Client {
	if baseURL == "" {
		baseURL = c.cfg.Backend.BaseURL
	}
	return workflow.NewClient(workflow.ClientConfig{
		BaseURL: baseURL,
		Timeout: c.cfg.Backend.Timeout,
		Logger:  c.logger,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modelselector %s\n", version)
		},
	}
}
