// Package bootstrap wires the label service from configuration. The HTTP
// server and labelctl share it so both print through the same pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	app "github.com/erp/labels/internal/application/labeling"
	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/infrastructure/barcode"
	"github.com/erp/labels/internal/infrastructure/config"
	"github.com/erp/labels/internal/infrastructure/logger"
	"github.com/erp/labels/internal/infrastructure/persistence"
	"github.com/erp/labels/internal/infrastructure/raster"
	"github.com/erp/labels/internal/infrastructure/session"
	"github.com/erp/labels/internal/infrastructure/storage"
	"github.com/erp/labels/internal/infrastructure/telemetry"
)

// Options selects the optional parts to build
type Options struct {
	// Sessions builds the print session store (server only)
	Sessions bool
	// Rasterizer builds the headless Chrome rasterizer for the PDF path
	Rasterizer bool
	// Metrics registers the Prometheus collectors
	Metrics bool
	// Tracing installs the trace provider described by the telemetry section
	Tracing bool
	// TracerOptions are passed to the trace provider
	TracerOptions []telemetry.TracerOption
	// Version tags exported spans
	Version string
}

// Components holds everything built from one configuration
type Components struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *telemetry.LabelMetrics
	Tracer     *telemetry.TracerProvider
	Database   *persistence.Database
	Catalog    *app.CatalogService
	Assembler  *app.Assembler
	Sessions   session.Store
	Archive    storage.ArtifactStore
	Rasterizer raster.Rasterizer
}

// NewLogger builds the zap logger described by the log section
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// Build creates the components. On error everything built so far is closed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (_ *Components, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Components{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if opts.Metrics {
		c.Metrics = telemetry.NewLabelMetrics()
	}
	if opts.Tracing {
		c.Tracer, err = telemetry.NewTracerProvider(ctx, telemetry.TracerConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			ServiceVersion:    opts.Version,
			Insecure:          cfg.Telemetry.Insecure,
		}, log.Named("tracing"), opts.TracerOptions...)
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
	}

	prices, err := app.NewPriceFormatter(cfg.Labels.CurrencyCode, cfg.Labels.PriceLanguage)
	if err != nil {
		return nil, fmt.Errorf("price format: %w", err)
	}

	catalogOpts := []app.CatalogOption{
		app.WithMaxQuantity(cfg.Labels.MaxQuantity),
		app.WithCatalogLogger(log),
	}
	if cfg.Labels.DefaultFamily != "" {
		family, ok := domain.ParsePrinterFamily(cfg.Labels.DefaultFamily)
		if !ok {
			return nil, fmt.Errorf("unknown default printer family %q", cfg.Labels.DefaultFamily)
		}
		catalogOpts = append(catalogOpts, app.WithDefaults(family, cfg.Labels.DefaultFormat))
	}

	if cfg.Database.Enabled {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
		db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			return nil, fmt.Errorf("connect product database: %w", err)
		}
		c.Database = db
		catalogOpts = append(catalogOpts, app.WithProductRepository(persistence.NewGormProductRepository(db.DB)))
		log.Info("Product database connected", zap.String("driver", cfg.Database.Driver))
	}
	c.Catalog = app.NewCatalogService(domain.DefaultCatalog(), catalogOpts...)

	assemblerOpts := []app.AssemblerOption{
		app.WithLogger(log),
		app.WithMetrics(c.Metrics),
		app.WithConfig(app.AssemblerConfig{
			Oversample:    cfg.Renderer.Oversample,
			PageTimeout:   cfg.Renderer.Timeout,
			SessionTTL:    cfg.Labels.SessionTTL,
			PublicBaseURL: cfg.Labels.PublicBaseURL,
		}),
	}

	if opts.Sessions {
		store, err := session.NewFactory(cfg.Redis, session.WithLogger(log)).CreateStore()
		if err != nil {
			return nil, err
		}
		c.Sessions = store
		assemblerOpts = append(assemblerOpts, app.WithSessionStore(store))
	}

	archive, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("pdf archive: %w", err)
	}
	if archive != nil {
		c.Archive = archive
		assemblerOpts = append(assemblerOpts, app.WithArchive(archive))
	}

	if opts.Rasterizer {
		c.Rasterizer = raster.NewChromedpRasterizer(&raster.ChromedpConfig{
			DefaultTimeout: cfg.Renderer.Timeout,
			RemoteURL:      cfg.Renderer.RemoteURL,
			ExecPath:       cfg.Renderer.ChromePath,
			NoSandbox:      cfg.Renderer.NoSandbox,
			Scale:          cfg.Renderer.Oversample,
			Logger:         log.Named("raster"),
		})
		assemblerOpts = append(assemblerOpts, app.WithRasterizer(c.Rasterizer))
	}

	filler := barcode.NewFiller(barcode.NewDrawer(), c.Metrics, log)
	c.Assembler = app.NewAssembler(c.Catalog, app.NewLabelRenderer(prices), filler, assemblerOpts...)
	return c, nil
}

// HealthChecks returns a ping per reachable external component
func (c *Components) HealthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if c.Database != nil {
		checks["database"] = func(context.Context) error { return c.Database.Ping() }
	}
	if pinger, ok := c.Sessions.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}
	return checks
}

// Close releases the browser, the session store and the database, then
// flushes pending spans
func (c *Components) Close() error {
	var errs []error
	if c.Rasterizer != nil {
		if err := c.Rasterizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rasterizer: %w", err))
		}
	}
	if c.Sessions != nil {
		if err := c.Sessions.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("sessions: %w", err))
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if err := c.Tracer.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	return errors.Join(errs...)
}

// Describe summarizes the wiring for the startup log
func (c *Components) Describe() []zap.Field {
	parts := []string{"catalog"}
	if c.Database != nil {
		parts = append(parts, "products")
	}
	if c.Sessions != nil {
		parts = append(parts, "print")
	}
	if c.Rasterizer != nil {
		parts = append(parts, "pdf")
	}
	if c.Archive != nil {
		parts = append(parts, "archive:"+c.Config.Storage.Driver)
	}
	if c.Tracer.Enabled() {
		parts = append(parts, "tracing")
	}
	return []zap.Field{zap.String("features", strings.Join(parts, ","))}
}
