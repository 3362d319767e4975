// Command sniper watches new token creations and buys those matching
// operator rules.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"solana-sniper/internal/app"
	"solana-sniper/internal/config"
)

// AppVersion contains the application version
const AppVersion = "0.3.0"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "sniper",
	Short:         "Rule-driven token sniper for pump.fun creations",
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine until interrupted",
	RunE:  runEngine,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply storage migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		a.Logger().Info("storage schema is up to date")
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration is invalid: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (storage=%s, dry_run=%t)\n", cfg.Storage.Backend, cfg.App.DryRun)
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if viper.GetBool("dry-run") {
		cfg.App.DryRun = true
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

// openApp loads configuration and opens storage. validate runs the full
// configuration check needed by the engine.
func openApp(ctx context.Context, validate bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return app.New(ctx, cfg)
}

// runEngine runs the sniper and shuts down gracefully on SIGINT or SIGTERM.
func runEngine(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "simulate acquisitions instead of trading")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("dry-run", rootCmd.PersistentFlags().Lookup("dry-run"))

	rootCmd.AddCommand(runCmd, migrateCmd, validateCmd, rulesCmd, accountsCmd, statsCmd, archiveCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
