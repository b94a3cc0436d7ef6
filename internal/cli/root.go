package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"emianalyzer/internal/config"
	"emianalyzer/internal/log"
)

// loaded by the root command before any subcommand runs
var (
	appConfig *config.Config
	appLogger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "emianalyzer",
	Short: "Loan and credit-card burden analyzer",
	Long: `emianalyzer tracks income, budgets, loans and credit cards per user and
derives EMI ratios, health zones, risk levels and payment plans from them.

Configuration is read from the environment (and .env when present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		LoadEnvFile()
		cfg, err := LoadAndValidateConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		appLogger = SetupLogger(cfg)
		return nil
	},
}

// Execute runs the command line with ctx; it is cancelled on SIGINT or
// SIGTERM by the caller.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Command returns the root command, for embedding and tests.
func Command() *cobra.Command {
	return rootCmd
}

// openApp builds the App for a command and hands it to fn.
func openApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			appLogger.Error("Failed to close application", "error", err)
		}
	}()
	return fn(ctx, app)
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}
