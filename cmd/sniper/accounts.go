package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/service"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage trading accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trading accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.Accounts()
		if err != nil {
			return err
		}
		accounts, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}
		printAccounts(cmd.OutOrStdout(), accounts)
		return nil
	},
}

var addAccount service.NewAccount

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an account; the API key is sealed with vault.passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.Accounts()
		if err != nil {
			return err
		}
		acc, err := svc.Add(cmd.Context(), addAccount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added account %s (%s)\n", acc.ID, acc.PublicKey)
		return nil
	},
}

func toggleAccountCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark an account %s", map[bool]string{true: "active", false: "inactive"}[active]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.Accounts()
			if err != nil {
				return err
			}
			return svc.SetActive(cmd.Context(), args[0], active)
		},
	}
}

func printAccounts(w io.Writer, accounts []*domain.Account) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tPUBLIC KEY\tACTIVE\tCREATED")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
			acc.ID, acc.Label, acc.PublicKey, acc.Active,
			time.UnixMilli(acc.CreatedAt).UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func init() {
	accountsAddCmd.Flags().StringVar(&addAccount.ID, "id", "", "account id (generated when empty)")
	accountsAddCmd.Flags().StringVar(&addAccount.Label, "label", "", "display label")
	accountsAddCmd.Flags().StringVar(&addAccount.PublicKey, "public-key", "", "wallet public key (base58)")
	accountsAddCmd.Flags().StringVar(&addAccount.APIKey, "api-key", "", "trade API key")
	_ = accountsAddCmd.MarkFlagRequired("public-key")
	_ = accountsAddCmd.MarkFlagRequired("api-key")

	accountsCmd.AddCommand(
		accountsListCmd,
		accountsAddCmd,
		toggleAccountCmd("activate", true),
		toggleAccountCmd("deactivate", false),
	)
}
