package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/erp/labels/internal/bootstrap"
	"github.com/erp/labels/internal/infrastructure/config"
	"github.com/erp/labels/internal/interfaces/http/handler"
	"github.com/erp/labels/internal/interfaces/http/middleware"
	"github.com/erp/labels/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting label service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	components, err := bootstrap.Build(context.Background(), cfg, log, bootstrap.Options{
		Sessions:   true,
		Rasterizer: true,
		Metrics:    true,
		Tracing:    true,
		Version:    version,
	})
	if err != nil {
		log.Fatal("Failed to initialize label service", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()
	log.Info("Label service ready", components.Describe()...)

	system := handler.NewSystemHandler(cfg.App.Name, version, components.Assembler)
	for name, check := range components.HealthChecks() {
		system.AddCheck(name, check)
	}

	engine := router.NewEngine(router.EngineOptions{
		Env:     cfg.App.Env,
		HTTP:    cfg.HTTP,
		Logger:  log,
		Health:  system.Health,
		Metrics: components.Metrics.Handler(),
		Tracing: middleware.TracingConfig{
			Enabled:     components.Tracer.Enabled(),
			ServiceName: cfg.Telemetry.ServiceName,
		},
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.LabelRoutes(handler.NewLabelHandler(components.Catalog, components.Assembler)))
	if components.Catalog.HasProductRepository() {
		r.Register(handler.ProductRoutes(handler.NewProductHandler(components.Catalog)))
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
