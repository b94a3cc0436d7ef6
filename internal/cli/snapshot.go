package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"emianalyzer/internal/core"
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().String("date", "", "Reference date YYYY-MM-DD (default today)")
	snapshotCmd.Flags().String("view", "snapshot", "What to print: snapshot, charts, risk or payments")
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot USER_ID",
	Short: "Print a user's financial snapshot as JSON",
	Long: `Compute the snapshot of one user at a reference date and print it, or one
of the views derived from it (charts, risk, payments).`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	dateFlag, _ := cmd.Flags().GetString("date")
	view, _ := cmd.Flags().GetString("view")

	var ref core.Date
	if dateFlag != "" {
		if ref, err = core.ParseDate(dateFlag); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	return openApp(cmd, func(ctx context.Context, app *App) error {
		var out any
		switch view {
		case "snapshot":
			out, err = app.Analyzer.Snapshot(ctx, userID, ref)
		case "charts":
			out, err = app.Analyzer.Charts(ctx, userID, ref)
		case "risk":
			out, err = app.Analyzer.Risk(ctx, userID, ref)
		case "payments":
			out, err = app.Analyzer.Payments(ctx, userID, ref)
		default:
			return fmt.Errorf("unknown view %q: must be snapshot, charts, risk or payments", view)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	})
}
