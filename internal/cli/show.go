package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

var formats = []string{"text", "json", "yaml"}

func newShowCmd(a *app) *cobra.Command {
	var (
		format     string
		fromDaemon bool
	)

	cmd := &cobra.Command{
		Use:   "show [INDEX]",
		Short: "Show every field of one battery",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid battery index %q", args[0])
				}
				idx = n
			}
			if !slices.Contains(formats, format) {
				return errUnknownFormat(format)
			}

			reports, err := a.reports(cmd.Context(), fromDaemon)
			if err != nil {
				return err
			}
			if idx >= len(reports) {
				return fmt.Errorf("battery %d: %w", idx, battery.ErrNotFound)
			}
			return writeReport(cmd.OutOrStdout(), reports[idx], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&fromDaemon, "daemon", false, "ask the running daemon for its latest report instead of reading the hardware")
	return cmd
}

func writeReport(w io.Writer, r battery.Report, format string) error {
	switch format {
	case "text":
		for _, f := range r.Fields() {
			if _, err := fmt.Fprintf(w, "%-20s %s\n", f.Name+":", f.Value); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errUnknownFormat(format)
	}
}

func errUnknownFormat(format string) error {
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(formats, ", "))
}
