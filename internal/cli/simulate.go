package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/simulation"
	"github.com/spf13/cobra"
)

type simulateOpts struct {
	duration time.Duration
	script   string
	record   string
}

// simulateCommand creates the "simulate" command.
func (c *CLI) simulateCommand() *cobra.Command {
	opts := simulateOpts{duration: simulation.DefaultDuration}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay renderer actions on a virtual clock",
		Long: `Run the showcase on a virtual clock and print every transition. The
script is a comma separated list of <time>:<action> steps, where action is
one of start, end, tick, dispose or select=<index>.`,
		Example: `  showcase simulate --for 30s --script "7s:start,12s:end,20s:select=0"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSimulate(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.duration, "for", opts.duration, "virtual time to simulate")
	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "renderer actions to replay")
	cmd.Flags().StringVar(&opts.record, "record", "", "record transitions into this SQLite file (without extension)")

	return cmd
}

func (c *CLI) runSimulate(w io.Writer, opts simulateOpts) error {
	if opts.duration <= 0 {
		return fmt.Errorf("--for must be positive, got %s", opts.duration)
	}

	script, err := simulation.ParseScript(opts.script)
	if err != nil {
		return err
	}

	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder().
		WithConfig(cfg).
		WithScript(script).
		WithLogger(c.Logger)
	if opts.record != "" {
		b = b.WithOutputFileName(opts.record)
	}

	sim, err := b.Build()
	if err != nil {
		return err
	}

	runErr := sim.Run(opts.duration)
	printTimeline(w, cfg, sim)

	if err := errors.Join(runErr, sim.Terminate()); err != nil {
		return err
	}

	if sim.OutputFile() != "" {
		c.Logger.Info("recorded transitions", "file", sim.OutputFile())
	}

	return nil
}

func printTimeline(w io.Writer, cfg *config.Config, sim *simulation.Simulation) {
	s := newStyles(w)
	title := func(i int) string { return cfg.Items[i].Title }

	fmt.Fprintln(w, s.title.Render(fmt.Sprintf("Simulated %s of %d items every %s",
		sim.GetEngine().CurrentTime(), len(cfg.Items), cfg.Interval())))

	for _, e := range sim.Timeline() {
		at := s.dim.Render(fmt.Sprintf("%8s", e.At))
		reason := fmt.Sprintf("%-18s", e.Reason)

		var change string
		switch {
		case e.Moved():
			change = s.moved.Render(fmt.Sprintf("%s %s %s",
				title(e.From), iconArrow, title(e.To)))
		case e.Paused:
			change = s.held.Render(title(e.To) + " (paused)")
		default:
			change = title(e.To)
		}

		fmt.Fprintf(w, "%s  %s  %s\n", at, reason, change)
	}

	counts := sim.GetCounter().Counts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "%-18s  %s\n", name, s.number.Render(fmt.Sprint(counts[name])))
	}

	state := sim.GetShowcase().State()
	fmt.Fprintf(w, "%s active %s, paused %t, timer pending %t\n",
		s.success.Render(iconSuccess), title(state.ActiveIndex),
		state.Paused, state.TimerPending)
}
