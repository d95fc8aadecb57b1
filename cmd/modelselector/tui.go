// ABOUTME: The tui command: runs the Bubble Tea visualizer against the configured backend.
// ABOUTME: Logs always go to a file because the alt-screen owns the terminal.
package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/2389-research/modelselector/tui"
	"github.com/2389-research/modelselector/visualizer"
)

func (c *cli) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}
}

func (c *cli) runTUI(cmd *cobra.Command) error {
	if err := c.setup(true); err != nil {
		return err
	}
	catalog, err := c.cfg.Catalog()
	if err != nil {
		return err
	}

	bridge := tui.NewEventBridge()
	ctrl, err := visualizer.NewController(visualizer.Config{
		Client:       c.newClient(""),
		ThinkDelay:   c.cfg.Reveal.ThinkDelay,
		OutputDelay:  c.cfg.Reveal.OutputDelay,
		Catalog:      catalog,
		Logger:       c.logger,
		EventHandler: bridge.HandleEvent,
	})
	if err != nil {
		return err
	}
	defer bridge.Close()
	defer ctrl.Close()

	ctx := cmd.Context()
	model := tui.NewAppModel(ctx, ctrl, bridge, contentRenderer(c.stdout))

	// Create the Bubble Tea program with alt-screen mode.
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(c.stdout))
	c.logger.Info("tui started", zap.String("session_id", ctrl.SessionID()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

// contentRenderer picks glamour for a terminal and plain wrapping otherwise.
func contentRenderer(w io.Writer) tui.ContentRenderer {
	if isTerminal(w) {
		return tui.NewGlamourRenderer("dark")
	}
	return tui.PlainRenderer{}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or fallback when w is not a terminal.
func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
