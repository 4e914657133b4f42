package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/internal/cli"
	"github.com/furrow-ag/furrow/internal/config"
	"github.com/furrow-ag/furrow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "furrow",
	Short: "Furrow is an agricultural supply-chain ledger",
	Long: `Furrow records participants, produce batches, escrow funds, disputes and
governance proposals, and settles payments when deliveries are confirmed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup loads configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		loaded.LogLevel = level
	}

	lvl, err := logging.ParseLevel(loaded.LogLevel)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.NewWithFormat(cmd.ErrOrStderr(), lvl, cfg.LogFormat)
	return nil
}

func openLedger(cmd *cobra.Command) (*furrow.Ledger, error) {
	return cli.NewLedger(cmd.Context(), cfg, logger, cli.DebugHooks(logger))
}

func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return cli.Render(cmd.OutOrStdout(), format, v)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", cli.FormatText, "Output format: text, json or yaml")
}
