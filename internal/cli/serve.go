package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "emianalyzer/internal/http"
	"emianalyzer/internal/middleware/ratelimit"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default \":$PORT\")")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API for records, snapshots, charts and the admin views.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = ":" + appConfig.Port
	}

	return openApp(cmd, func(ctx context.Context, app *App) error {
		app.CacheManager.StartCleanup(cacheCleanupInterval)

		rl := ratelimit.DefaultConfig()
		rl.RequestsPerMinute = appConfig.RateLimitPerMinute

		srv, err := apphttp.NewServer(apphttp.ServerConfig{
			Addr:           addr,
			RequestTimeout: appConfig.RequestTimeout,
			RateLimit:      rl,
			Analyzer:       app.Analyzer,
			Records:        app.Records,
			Store:          app.Store,
			Metrics:        app.Metrics,
			Logger:         app.Logger,
		})
		if err != nil {
			return err
		}
		return serveUntilDone(ctx, srv, app)
	})
}

func serveUntilDone(ctx context.Context, srv *apphttp.Server, app *App) error {
	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting emianalyzer server", "addr", srv.Addr, "backend", appConfig.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			app.Logger.Error("Server error", "error", err, "addr", srv.Addr)
		}
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("Server shutdown error", "error", err)
		return err
	}
	app.Logger.Info("Server stopped gracefully")
	return nil
}
