package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"emianalyzer/internal/report"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout, or the kind's file name with --file)")
	exportCmd.Flags().Bool("file", false, "Write to the default file name of the export kind")
}

var exportCmd = &cobra.Command{
	Use:   "export KIND",
	Short: "Write an admin export (users, loans, budgets, emi-pdf, sheets)",
	Long: `Write one of the admin exports: the users, loans or budgets CSV, the
emi-pdf risk report, or "sheets" to append the user summary to the
configured Google Sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if args[0] == "sheets" {
		return openApp(cmd, func(ctx context.Context, app *App) error {
			updated, err := app.Analyzer.ExportToSheets(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appended user summary to %s\n", updated)
			return nil
		})
	}

	kind, err := report.ParseExportKind(args[0])
	if err != nil {
		return fmt.Errorf("%q: %w", args[0], err)
	}
	outPath, _ := cmd.Flags().GetString("out")
	if toFile, _ := cmd.Flags().GetBool("file"); toFile && outPath == "" {
		outPath = kind.Filename()
	}

	return openApp(cmd, func(ctx context.Context, app *App) error {
		var w io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			defer f.Close()
			w = f
		}
		if err := app.Analyzer.Export(ctx, kind, w); err != nil {
			return err
		}
		if outPath != "" {
			app.Logger.Info("Export written", "kind", kind, "path", outPath)
		}
		return nil
	})
}
