package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

func newListCmd(a *app) *cobra.Command {
	var fromDaemon bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List batteries with their charge and state",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.reports(cmd.Context(), fromDaemon)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tSTATE\tCHARGE\tHEALTH\tRATE\tREMAINING\tMODEL")
			for i, r := range reports {
				fmt.Fprintf(w, "%d\t%s\t%.1f%%\t%.1f%%\t%.2f W\t%s\t%s\n",
					i,
					r.State,
					r.Percentage,
					r.Capacity,
					float64(r.EnergyRate)/1000,
					remaining(r),
					orDash(r.Model),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "ask the running daemon for its latest reports instead of reading the hardware")
	return cmd
}

// remaining picks whichever time estimate applies to the current state.
func remaining(r battery.Report) string {
	switch {
	case r.TimeToFull != nil:
		return r.TimeToFull.Round(time.Minute).String() + " to full"
	case r.TimeToEmpty != nil:
		return r.TimeToEmpty.Round(time.Minute).String() + " to empty"
	default:
		return "-"
	}
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
