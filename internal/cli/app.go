package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/liftwatch/liftwatch/internal/adapters/intelligems"
	"github.com/liftwatch/liftwatch/internal/adapters/otel"
	"github.com/liftwatch/liftwatch/internal/adapters/turso"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/infrastructure/config"
	"github.com/liftwatch/liftwatch/internal/ports"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config     *config.Config
	Thresholds domain.Thresholds
	API        ports.AnalyticsAPI
	Reports    ports.ReportRepository
	Metrics    ports.MetricsExporter

	db *sql.DB
}

// NewAppContext creates an AppContext with all dependencies
// initialized. The report repository is only wired when a database is
// configured, and telemetry degrades to a no-op exporter.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app := &AppContext{
		Config:     cfg,
		Thresholds: cfg.Thresholds(),
	}

	var metrics ports.MetricsExporter = otel.NewNoOpExporter()
	if cfg.Telemetry.Enabled {
		exporter, err := otel.NewExporter(ctx, otel.Config{
			Endpoint: cfg.Telemetry.Endpoint,
			Enabled:  cfg.Telemetry.Enabled,
			Insecure: cfg.Telemetry.Insecure,
		})
		if err != nil {
			fmt.Printf("Warning: telemetry disabled: %v\n", err)
		} else {
			metrics = exporter
		}
	}
	app.Metrics = metrics

	app.API = intelligems.NewClient(cfg.API.Key,
		intelligems.WithBaseURL(cfg.API.BaseURL),
		intelligems.WithMetricsExporter(metrics),
	)

	if cfg.Database.URL != "" {
		db, err := turso.NewDB(cfg.Database.URL, cfg.Database.AuthToken)
		if err != nil {
			_ = metrics.Close(ctx)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := turso.NewReportRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			_ = metrics.Close(ctx)
			return nil, err
		}
		app.db = db
		app.Reports = repo
	}

	return app, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Metrics != nil {
		_ = a.Metrics.Close(ctx)
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
