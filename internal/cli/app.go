package cli

import (
	"context"
	"fmt"

	"emianalyzer/internal/amqp"
	"emianalyzer/internal/backend"
	"emianalyzer/internal/cache"
	"emianalyzer/internal/config"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/ports"
	"emianalyzer/internal/services"
	"emianalyzer/internal/sheets"
	gsheet "emianalyzer/internal/sheets/google"
)

// App holds the services every command shares.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   ports.Store
	Events  *amqp.Client
	Metrics *metrics.Metrics

	Analyzer *services.AnalyzerService
	Records  *services.RecordService
	Sweeper  *services.RiskSweeper

	Cache        *cache.LRUCache[*finance.Snapshot]
	CacheManager *cache.Manager

	cleanup backend.CleanupFunc
}

// NewApp opens the configured backend and builds the services on top of it.
// Close releases everything NewApp opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	var summaryWriter sheets.SummaryWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			_ = result.Cleanup()
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		summaryWriter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	m := metrics.New()
	snapshots := cache.NewLRUCache[*finance.Snapshot](cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	manager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	manager.Register(snapshots)

	analyzer := services.NewAnalyzerService(result.Store, services.AnalyzerConfig{
		Defaults: cfg.Thresholds,
		Cache:    snapshots,
		Metrics:  m,
		Sheets:   summaryWriter,
	})

	// a nil *amqp.Client must not become a non-nil interface
	var publisher services.EventPublisher
	if result.Events != nil {
		publisher = result.Events
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        result.Store,
		Events:       result.Events,
		Metrics:      m,
		Analyzer:     analyzer,
		Records:      services.NewRecordService(result.Store, publisher, analyzer, m),
		Sweeper:      services.NewRiskSweeper(analyzer, result.Store, m),
		Cache:        snapshots,
		CacheManager: manager,
		cleanup:      result.Cleanup,
	}, nil
}

// Close stops the cache sweeper and closes the backend.
func (a *App) Close() error {
	a.CacheManager.Stop()
	if a.cleanup == nil {
		return nil
	}
	if err := a.cleanup(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return nil
}
