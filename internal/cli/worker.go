package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"emianalyzer/internal/config"
	"emianalyzer/internal/log"
	"emianalyzer/internal/worker"
)

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(sweepCmd)
	workerCmd.Flags().Bool("startup-sweep", true, "Assess every user once before consuming")
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Reassess risk on record changes and on a schedule",
	Long: `Consume record-change events from AMQP (when AMQP_URL is set) and run the
periodic risk sweep on RISK_SWEEP_SCHEDULE, storing each user's risk
assessment history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		startup, _ := cmd.Flags().GetBool("startup-sweep")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return RunWorker(ctx, appConfig, appLogger, startup)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Assess every user's risk once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return openApp(cmd, func(ctx context.Context, app *App) error {
			result, err := app.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assessed %d users, %d escalations, %d failures\n",
				result.Assessed, result.Escalations, result.Failed)
			return nil
		})
	},
}

// RunWorker blocks until ctx is cancelled or the event consumer fails.
func RunWorker(ctx context.Context, cfg *config.Config, logger *log.Logger, startupSweep bool) error {
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close application", "error", err)
		}
	}()

	var consumer worker.Consumer
	switch {
	case app.Events != nil:
		consumer = app.Events
	case cfg.AMQPURL != "":
		return fmt.Errorf("AMQP is configured but unreachable at startup")
	}

	w := worker.NewRiskWorker(app.Sweeper, consumer, worker.Config{
		Schedule:     cfg.RiskSweepSchedule,
		StartupSweep: startupSweep,
		StopTimeout:  10 * time.Second,
	}, logger.WithComponent(log.ComponentWorker))

	logger.Info("Starting emianalyzer worker",
		"schedule", cfg.RiskSweepSchedule,
		"events", consumer != nil)
	return w.Run(ctx)
}
