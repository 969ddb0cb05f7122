package cli

import (
	"github.com/sarchlab/showcase/config"
	"github.com/spf13/cobra"
)

// initCommand creates the "init" command.
func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [file]",
		Short: "Write a sample configuration",
		Long: `Write a sample configuration to file, showcase.toml by default. The
format follows the extension. Existing files are never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFiles[0]
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.WriteSample(path); err != nil {
				return err
			}

			c.Logger.Info("wrote sample configuration", "path", path)

			return nil
		},
	}
}
