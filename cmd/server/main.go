package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/config"
	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/repository/memory"
	"github.com/ridhampc123-lang/mango/internal/repository/mongodb"
	"github.com/ridhampc123-lang/mango/internal/repository/sheets"
	"github.com/ridhampc123-lang/mango/internal/scheduler"
	"github.com/ridhampc123-lang/mango/internal/server/handlers"
	"github.com/ridhampc123-lang/mango/internal/server/router"
	exportsvc "github.com/ridhampc123-lang/mango/internal/service/export"
	ledgersvc "github.com/ridhampc123-lang/mango/internal/service/ledger"
	registrysvc "github.com/ridhampc123-lang/mango/internal/service/registry"
	reportingsvc "github.com/ridhampc123-lang/mango/internal/service/reporting"
	whatsappsvc "github.com/ridhampc123-lang/mango/internal/service/whatsapp"
	whatsappclient "github.com/ridhampc123-lang/mango/pkg/clients/whatsapp"
	"github.com/ridhampc123-lang/mango/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore, err := openStore(context.Background(), cfg.Store, baseLogger.Named("repo"))
	if err != nil {
		baseLogger.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer closeStore()

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	ledgerSvc := ledgersvc.NewService(store, cfg.Ledger.MaxAttempts, baseLogger.Named("svc.ledger"))
	registrySvc := registrysvc.NewService(store, cfg.Ledger.MaxAttempts, baseLogger.Named("svc.registry"))
	reportingSvc := reportingsvc.NewService(store, baseLogger.Named("svc.reporting"))
	exportSvc := exportsvc.NewService(store, baseLogger.Named("svc.export"))

	var messagingSvc whatsappsvc.MessagingService = whatsappsvc.DisabledService{}
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp, whatsappclient.WithRetries(2, 500*time.Millisecond))
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, baseLogger.Named("svc.whatsapp"))
		baseLogger.Info("whatsapp messaging enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, outbound messages disabled")
	}

	var mirror scheduler.Mirror
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror = sheets.NewReportMirror(sheetsRepo, sheets.DailyReportsRange, baseLogger.Named("repo.sheets"))
		baseLogger.Info("daily report spreadsheet mirror enabled")
	}

	engine := router.New(cfg.Server, router.Handlers{
		Farmers:   handlers.NewFarmerHandler(ledgerSvc, registrySvc, exportSvc, messagingSvc, baseLogger.Named("handlers.farmers")),
		Customers: handlers.NewCustomerHandler(ledgerSvc, registrySvc, exportSvc, baseLogger.Named("handlers.customers")),
		Farm:      handlers.NewFarmHandler(ledgerSvc, registrySvc, baseLogger.Named("handlers.farm")),
		Orders:    handlers.NewOrderHandler(registrySvc, exportSvc, baseLogger.Named("handlers.orders")),
		Reports:   handlers.NewReportHandler(reportingSvc, loc, baseLogger.Named("handlers.reports")),
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(*cfg, reportingSvc, store, mirror, messagingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
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
	sched.Stop(shutdownCtx)
}

// openStore returns the configured ledger store and a function releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (repository.LedgerStore, func(), error) {
	switch cfg.Driver {
	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	case config.StoreMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()

		repo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.URI, cfg.DBName, log.Named("mongodb"))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := repo.Close(context.Background()); err != nil {
				log.Error("failed to close mongodb connection", zap.Error(err))
			}
		}
		return repo, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
