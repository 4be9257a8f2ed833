package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mitsukabu/screener/internal/api"
	"github.com/mitsukabu/screener/internal/backup"
	"github.com/mitsukabu/screener/internal/config"
	"github.com/mitsukabu/screener/internal/fetch"
	"github.com/mitsukabu/screener/internal/screener"
	"github.com/mitsukabu/screener/internal/storage"
	"github.com/mitsukabu/screener/internal/universe"
	"github.com/mitsukabu/screener/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting screener service",
		logger.Int("port", cfg.Server.Port),
		logger.String("storage_backend", cfg.Storage.Backend),
		logger.String("universe_csv", cfg.Universe.CSVPath),
	)

	// Initialize storage medium
	medium, err := newMedium(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage medium",
			logger.ErrorField(err),
		)
	}
	defer medium.Close()

	// Initialize stores
	dataset := storage.NewDatasetStore(medium, cfg.Storage.CompressionThreshold)
	annotations := storage.NewAnnotations(medium)

	// Initialize fetch pipeline
	provider := fetch.NewChartClient(cfg.Fetch.BaseURL, cfg.Fetch.Range, cfg.Fetch.Timeout)
	orchestrator := fetch.NewOrchestrator(provider, cfg.Fetch.MaxRetries, cfg.Fetch.RetryDelay, cfg.Fetch.RequestDelay)
	loader := universe.NewLoader(cfg.Universe.CSVPath, cfg.Universe.MaxStocks)

	// Initialize screening and backup
	scr := screener.New(dataset)
	mailer := backup.NewMailer(cfg.Backup)

	// Initialize handlers
	stockHandler := api.NewStockHandler(dataset, annotations)
	screeningHandler := api.NewScreeningHandler(scr, annotations)
	annotationHandler := api.NewAnnotationHandler(annotations, dataset)
	refreshHandler := api.NewRefreshHandler(orchestrator, loader, dataset)
	backupHandler := api.NewBackupHandler(mailer, annotations, loader)

	// Set up router
	router := mux.NewRouter()

	// API v1 routes
	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Dataset endpoints
	v1.HandleFunc("/status", stockHandler.GetStatus).Methods("GET")
	v1.HandleFunc("/stocks", stockHandler.ListStocks).Methods("GET")
	v1.HandleFunc("/stocks/{code}", stockHandler.GetStock).Methods("GET")

	// Screening endpoints
	v1.HandleFunc("/screening/turnback", screeningHandler.Turnback).Methods("GET")
	v1.HandleFunc("/screening/crossv", screeningHandler.CrossV).Methods("GET")

	// Annotation endpoints
	v1.HandleFunc("/{set:favorites|considering|holdings}", annotationHandler.ListSet).Methods("GET")
	v1.HandleFunc("/{set:favorites|considering|holdings}/{code}/toggle", annotationHandler.ToggleSet).Methods("POST")
	v1.HandleFunc("/stocks/{code}/status", annotationHandler.GetStatus).Methods("GET")
	v1.HandleFunc("/stocks/{code}/status", annotationHandler.SetStatus).Methods("PUT")
	v1.HandleFunc("/stocks/{code}/note", annotationHandler.GetNote).Methods("GET")
	v1.HandleFunc("/stocks/{code}/note", annotationHandler.SetNote).Methods("PUT")
	v1.HandleFunc("/stocks/{code}/note", annotationHandler.DeleteNote).Methods("DELETE")

	// Data management endpoints
	v1.HandleFunc("/refresh", refreshHandler.Refresh).Methods("POST")
	v1.HandleFunc("/data", refreshHandler.ClearData).Methods("DELETE")
	v1.HandleFunc("/backup", backupHandler.Backup).Methods("POST")

	// Health and metrics endpoints
	router.HandleFunc("/health", api.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.RecoveryMiddleware(),
		api.BasicAuthMiddleware(cfg.Server.BasicAuthUser, cfg.Server.BasicAuthPassword),
	)

	handler := middlewares(router)

	// Scheduled refresh
	scheduler := cron.New()
	if cfg.Server.RefreshSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Server.RefreshSchedule, func() {
			logger.Info("scheduled refresh starting",
				logger.String("schedule", cfg.Server.RefreshSchedule),
			)
			if err := refreshHandler.Run(context.Background()); err != nil {
				logger.Error("scheduled refresh failed", logger.ErrorField(err))
			}
		})
		if err != nil {
			logger.Fatal("Invalid refresh schedule",
				logger.String("schedule", cfg.Server.RefreshSchedule),
				logger.ErrorField(err),
			)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down screener service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Screener service stopped")
}

// newMedium selects the storage backend from configuration.
func newMedium(cfg config.StorageConfig) (storage.Medium, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.NewSQLiteMedium(cfg.Path)
	case "file":
		return storage.NewFileMedium(cfg.Path)
	case "memory":
		return storage.NewMemoryMedium(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
