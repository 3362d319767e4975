package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solana-sniper/internal/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage sniper rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		rules, err := a.Rules().List(cmd.Context())
		if err != nil {
			return err
		}
		printRules(cmd.OutOrStdout(), rules)
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one rule as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Rules().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), r)
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Create or replace rules from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		var rules []*domain.Rule
		if err := json.Unmarshal(data, &rules); err != nil {
			return fmt.Errorf("parse rules: %w", err)
		}

		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Rules().Import(cmd.Context(), rules)
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d\n", res.Created, res.Updated)
		return err
	},
}

func toggleRuleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Rules().SetEnabled(cmd.Context(), args[0], enabled)
		},
	}
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Rules().Delete(cmd.Context(), args[0])
	},
}

func printRules(w io.Writer, rules []*domain.Rule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tENABLED\tAMOUNT\tACCOUNTS\tKEYWORDS\tCONFIRM")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%g\t%d\t%s\t%t\n",
			r.ID, r.Name, r.Enabled, r.Amount, len(r.Accounts),
			strings.Join(r.SymbolKeywords, ","), r.RequireConfirmation)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rulesCmd.AddCommand(
		rulesListCmd,
		rulesShowCmd,
		rulesImportCmd,
		toggleRuleCmd("enable", true),
		toggleRuleCmd("disable", false),
		rulesDeleteCmd,
	)
}
