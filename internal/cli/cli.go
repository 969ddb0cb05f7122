// Package cli implements the showcase command-line interface.
//
// The commands are:
//   - tui: show a showcase in the terminal
//   - serve: run a showcase behind the HTTP monitor
//   - simulate: replay renderer actions on a virtual clock
//   - history: read back recorded transitions
//   - init: write a sample configuration
package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sarchlab/showcase/config"
	"github.com/spf13/cobra"
)

const appName = "showcase"

// Configuration files looked up in the working directory when --config is
// not given.
var defaultConfigFiles = []string{
	"showcase.toml",
	"showcase.yaml",
	"showcase.yml",
}

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance that logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Showcase cycles through items on a timer and pauses while you look",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}

			if c.verbose {
				c.SetLogLevel(LogDebug)
			}

			return nil
		},
	}

	root.SetVersionTemplate(versionTemplate())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false,
		"enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		"configuration file (.toml, .yaml)")

	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.initCommand())

	return root
}

// loadConfig reads the configuration named by --config, or the first default
// file that exists. Without any file, the sample configuration is used. The
// log level of the configuration applies unless --verbose is set.
func (c *CLI) loadConfig() (*config.Config, string, error) {
	path, err := c.findConfig()
	if err != nil {
		return nil, "", err
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.Sample()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, "", err
		}
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
		c.Logger.Debug("no configuration file, using the sample")
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", err
		}
		c.Logger.Debug("loaded configuration", "path", path)
	}

	if !c.verbose {
		level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return nil, "", errors.Join(config.ErrInvalidConfig, err)
		}
		c.SetLogLevel(level)
	}

	return cfg, path, nil
}

func (c *CLI) findConfig() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}

	for _, name := range defaultConfigFiles {
		_, err := os.Stat(name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	return "", nil
}
