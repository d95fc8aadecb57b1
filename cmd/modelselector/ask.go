// ABOUTME: The ask command: submits one query and prints Plan, Think and Output as each is revealed.
// ABOUTME: Stage content is rendered with glamour on a terminal and printed as-is otherwise.
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/modelselector/tui"
	"github.com/2389-research/modelselector/visualizer"
)

// errSubmissionFailed is returned after the error texts have been printed.
var errSubmissionFailed = errors.New("submission failed")

func (c *cli) newAskCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Submit one query and print each stage as it is revealed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.setup(false); err != nil {
				return err
			}
			var renderer tui.ContentRenderer = tui.PlainRenderer{}
			width := 0
			if !plain && isTerminal(c.stdout) {
				width = terminalWidth(c.stdout, 80)
				renderer = tui.NewGlamourRenderer("dark")
			}
			return c.ask(cmd, strings.Join(args, " "), renderer, width)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print raw stage content without markdown rendering")
	return cmd
}

// ask runs one submission and prints every revealed stage until the
// submission completes, fails or the context ends.
func (c *cli) ask(cmd *cobra.Command, query string, renderer tui.ContentRenderer, width int) error {
	ctx := cmd.Context()

	// One submission emits at most six events.
	events := make(chan visualizer.Event, 16)
	ctrl, err := visualizer.NewController(visualizer.Config{
		Client:       c.newClient(""),
		ThinkDelay:   c.cfg.Reveal.ThinkDelay,
		OutputDelay:  c.cfg.Reveal.OutputDelay,
		Logger:       c.logger,
		EventHandler: func(evt visualizer.Event) { events <- evt },
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if _, ok := ctrl.Start(ctx, query); !ok {
		return errors.New("query must not be empty")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-events:
			switch evt.Type {
			case visualizer.EventSubmitted:
				fmt.Fprintf(c.stdout, "Query: %s\n\n", evt.State.Submitted)
			case visualizer.EventStageRevealed:
				printStage(c.stdout, evt.State.Stage(evt.Stage), renderer, width)
			case visualizer.EventCompleted:
				return nil
			case visualizer.EventFailed:
				for _, stage := range visualizer.Stages {
					printStage(c.stdout, evt.State.Stage(stage), tui.PlainRenderer{}, 0)
				}
				return fmt.Errorf("%w: %s error", errSubmissionFailed, evt.State.LastErrorKind)
			}
		}
	}
}

func printStage(w io.Writer, st visualizer.StageState, renderer tui.ContentRenderer, width int) {
	fmt.Fprintf(w, "== %s ==\n", st.Stage.Label())
	fmt.Fprintln(w, renderer.Render(st.DisplayText(), width))
	fmt.Fprintln(w)
}
