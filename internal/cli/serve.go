package cli

import (
	"errors"

	"github.com/sarchlab/showcase/host"
	"github.com/spf13/cobra"
)

type serveOpts struct {
	port    int
	open    bool
	record  string
	redis   string
	channel string
	noWatch bool
}

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the showcase behind the HTTP monitor",
		Long: `Run the showcase on the wall clock and serve it over HTTP. The page at
the monitor URL renders the showcase, and /api exposes its state and
operations. The configuration file is watched and reloaded on change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "monitor port (0 picks the configured or a free port)")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the monitor in a browser")
	cmd.Flags().StringVar(&opts.record, "record", "", "record transitions into this SQLite file (without extension)")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "publish transitions to this Redis address")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "Redis channel to publish on")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload when the configuration file changes")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	cfg, path, err := c.loadConfig()
	if err != nil {
		return err
	}

	if opts.port != 0 {
		cfg.Monitor.Port = opts.port
	}
	if opts.open {
		cfg.Monitor.OpenBrowser = true
	}
	if opts.record != "" {
		cfg.Record.Path = opts.record
	}
	if opts.redis != "" {
		cfg.Redis.Addr = opts.redis
	}
	if opts.channel != "" {
		cfg.Redis.Channel = opts.channel
	}

	b := host.MakeBuilder().
		WithConfig(cfg).
		WithLogger(c.Logger).
		WithMonitor()
	if path != "" && !opts.noWatch {
		b = b.WithConfigPath(path)
	}

	h, err := b.Build()
	if err != nil {
		return err
	}

	runErr := h.Run(cmd.Context())

	return errors.Join(runErr, h.Terminate())
}
