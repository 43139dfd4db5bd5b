package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored battery snapshots from the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := a.window(since)
			if err != nil {
				return err
			}

			c, err := a.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			snaps, err := c.History(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots in range.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tINDEX\tSTATE\tCHARGE\tRATE")
			for _, s := range snaps {
				fmt.Fprintf(w, "%s\t%d\t%s\t%.1f%%\t%.2f W\n",
					time.Unix(s.Timestamp, 0).Format("2006-01-02 15:04:05"),
					s.Index,
					s.Report.State,
					s.Report.Percentage,
					float64(s.Report.EnergyRate)/1000,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&since, "since", time.Hour, "how far back to look")
	return cmd
}

func newSleepCmd(a *app) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Print recorded suspend/resume cycles from the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := a.window(since)
			if err != nil {
				return err
			}

			c, err := a.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			events, err := c.SleepEvents(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sleep events in range.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLEEP\tWAKE\tDURATION\tTYPE")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					time.Unix(e.SleepTime, 0).Format("2006-01-02 15:04:05"),
					time.Unix(e.WakeTime, 0).Format("2006-01-02 15:04:05"),
					time.Duration(e.WakeTime-e.SleepTime)*time.Second,
					e.Type,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

// window turns --since into a [from, to] unix-second range ending now.
func (a *app) window(since time.Duration) (int64, int64, error) {
	if since <= 0 {
		return 0, 0, fmt.Errorf("--since must be positive, got %s", since)
	}
	to := a.now().Unix()
	from := to - int64(since/time.Second)
	if from < 0 {
		from = 0
	}
	return from, to, nil
}
