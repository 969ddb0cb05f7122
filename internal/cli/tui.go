package cli

import (
	"fmt"
	"os"

	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/tracing"
	"github.com/sarchlab/showcase/tui"
	"github.com/spf13/cobra"
)

// tuiCommand creates the "tui" command.
func (c *CLI) tuiCommand() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Show the showcase in the terminal",
		Long: `Show the showcase in the terminal. Hovering the tabs or the pane pauses
the rotation, clicking a tab selects it. Use the arrow keys or digits to
select, space to resume and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}

			var hooks []hooking.Hook
			if logFile != "" {
				f, err := os.OpenFile(logFile,
					os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()

				// The terminal belongs to the renderer, so transitions are
				// logged to the file only.
				logger := newLogger(f, c.Logger.GetLevel())
				items := cfg.Items
				hooks = append(hooks, tracing.NewLogTracer(logger).
					WithLabel(func(i int) string { return items[i].Title }))
			}

			return tui.Run(cmd.Context(), cfg, hooks...)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "append transitions to this file")

	return cmd
}
