package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/registry"
	"github.com/mamadbah2/agritrace/internal/repository/mongodb"
	"github.com/mamadbah2/agritrace/internal/repository/sheets"
	"github.com/mamadbah2/agritrace/internal/scheduler"
	"github.com/mamadbah2/agritrace/internal/server/handlers"
	"github.com/mamadbah2/agritrace/internal/server/router"
	mirrorsvc "github.com/mamadbah2/agritrace/internal/service/mirror"
	indexerclient "github.com/mamadbah2/agritrace/pkg/clients/indexer"
	"github.com/mamadbah2/agritrace/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	reg, err := registry.New(registry.Options{
		Admin:         cfg.Registry.AdminID,
		StrictCustody: cfg.Registry.StrictCustody,
		EventBuffer:   cfg.Registry.EventBuffer,
	}, baseLogger.Named("registry"))
	if err != nil {
		baseLogger.Fatal("failed to init registry", zap.Error(err))
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	mirror := mirrorsvc.NewService(reg.Events(), baseLogger.Named("svc.mirror"))
	mirror.AddSink("mongodb", mongoRepo)

	if cfg.Indexer.BaseURL != "" {
		mirror.AddSink("indexer", indexerclient.NewClient(cfg.Indexer))
		baseLogger.Info("indexer mirror sink enabled", zap.String("base_url", cfg.Indexer.BaseURL))
	} else {
		baseLogger.Warn("indexer base url missing, indexer mirroring disabled")
	}

	if cfg.Sheets.SpreadsheetID != "" {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror.AddSink("sheets", sheetsRepo)
		baseLogger.Info("sheet export sink enabled")
	} else {
		baseLogger.Warn("spreadsheet id missing, sheet export disabled")
	}

	mirror.Start()
	defer mirror.Stop()

	registryHandler := handlers.NewRegistryHandler(reg, baseLogger.Named("handlers.registry"))
	engine := router.New(registryHandler, baseLogger.Named("router"))

	// Initialize Scheduler
	sched := scheduler.NewScheduler(*cfg, reg, mongoRepo, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("admin", cfg.Registry.AdminID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
