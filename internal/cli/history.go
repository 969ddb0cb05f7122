package cli

import (
	"fmt"
	"io"

	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/tracing"
	"github.com/spf13/cobra"
)

type historyOpts struct {
	db       string
	showcase string
	reason   string
	limit    int
	offset   int
}

// historyCommand creates the "history" command.
func (c *CLI) historyCommand() *cobra.Command {
	opts := historyOpts{limit: 50}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print transitions recorded by serve or simulate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(opts.db)
			if err != nil {
				return err
			}
			defer reader.Close()

			return c.printHistory(cmd, reader, opts)
		},
	}

	cmd.Flags().StringVar(&opts.db, "db", "", "SQLite file to read (with extension)")
	cmd.Flags().StringVar(&opts.showcase, "showcase", "", "only transitions of this showcase ID")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "only transitions with this reason")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", opts.limit, "maximum number of rows (0 for all)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "rows to skip")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (c *CLI) printHistory(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	opts historyOpts,
) error {
	reader.MapTable(tracing.TransitionTable, tracing.TransitionEntry{})

	params := datarecording.QueryParams{
		OrderBy: "Time, Seq",
		Limit:   opts.limit,
		Offset:  opts.offset,
	}
	params.Where, params.Args = historyFilter(opts)

	rows, total, err := reader.Query(cmd.Context(), tracing.TransitionTable, params)
	if err != nil {
		return fmt.Errorf("query %s: %w", opts.db, err)
	}

	w := cmd.OutOrStdout()
	s := newStyles(w)

	for _, row := range rows {
		printEntry(w, s, row.(*tracing.TransitionEntry))
	}

	fmt.Fprintln(w, s.dim.Render(fmt.Sprintf("%d of %d transitions", len(rows), total)))

	return nil
}

func historyFilter(opts historyOpts) (string, []any) {
	var (
		where string
		args  []any
	)

	add := func(clause string, arg any) {
		if where != "" {
			where += " AND "
		}
		where += clause
		args = append(args, arg)
	}

	if opts.showcase != "" {
		add("ControllerID = ?", opts.showcase)
	}
	if opts.reason != "" {
		add("Reason = ?", opts.reason)
	}

	return where, args
}

func printEntry(w io.Writer, s styles, e *tracing.TransitionEntry) {
	change := fmt.Sprintf("%d", e.ToIndex)
	if e.FromIndex != e.ToIndex {
		change = s.moved.Render(fmt.Sprintf("%d %s %d", e.FromIndex, iconArrow, e.ToIndex))
	}

	fmt.Fprintf(w, "%s  %-20s  #%-4d  %-18s  %s\n",
		s.dim.Render(fmt.Sprintf("%10.3fs", e.Time)),
		e.ControllerID, e.Seq, e.Reason, change)
}
