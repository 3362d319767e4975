package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsSince time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the safety state and, with ClickHouse, spend per rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.SafetyState(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := printJSON(out, state); err != nil {
			return err
		}

		analytics := a.Stores().Analytics
		if analytics == nil {
			return nil
		}
		end := time.Now()
		spend, err := analytics.SpendByRule(cmd.Context(), end.Add(-statsSince).UnixMilli(), end.UnixMilli())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "\nRULE\tSPENT (SOL)\tSUCCESSES\tFAILURES\t(last %s)\n", statsSince)
		for _, s := range spend {
			fmt.Fprintf(tw, "%s\t%.4f\t%d\t%d\t\n", s.RuleID, s.Spent, s.Successes, s.Failures)
		}
		return tw.Flush()
	},
}

var archiveFrom, archiveTo string

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Export transaction records in a time window to S3 as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		to := time.Now()
		if archiveTo != "" {
			t, err := parseTime(archiveTo)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			to = t
		}
		from := to.Add(-24 * time.Hour)
		if archiveFrom != "" {
			t, err := parseTime(archiveFrom)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			from = t
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Archive(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if res.Count == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no transactions in window")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d transactions to %s\n", res.Count, res.Key)
		return nil
	},
}

// parseTime accepts RFC 3339 timestamps or plain UTC dates.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 24*time.Hour, "window for per-rule spend")

	archiveCmd.Flags().StringVar(&archiveFrom, "from", "", "window start, RFC 3339 or YYYY-MM-DD (default: 24h before --to)")
	archiveCmd.Flags().StringVar(&archiveTo, "to", "", "window end, RFC 3339 or YYYY-MM-DD (default: now)")
}
