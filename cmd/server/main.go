package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/config"
	"github.com/mamadbah2/tally/internal/repository/mongodb"
	"github.com/mamadbah2/tally/internal/repository/sheets"
	"github.com/mamadbah2/tally/internal/repository/workbook"
	"github.com/mamadbah2/tally/internal/scheduler"
	"github.com/mamadbah2/tally/internal/server/handlers"
	"github.com/mamadbah2/tally/internal/server/router"
	"github.com/mamadbah2/tally/internal/service/inventory"
	"github.com/mamadbah2/tally/internal/service/ledger"
	"github.com/mamadbah2/tally/internal/service/period"
	reportingsvc "github.com/mamadbah2/tally/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/tally/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/tally/pkg/clients/whatsapp"
	"github.com/mamadbah2/tally/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sheetWriter ledger.SheetWriter
		batchStore  ledger.BatchStore
		sinks       scheduler.Sinks
		calOpts     []handlers.CalendarOption
	)

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetWriter, sinks.Sheets = sheetsRepo, sheetsRepo
	} else {
		baseLogger.Warn("google sheets not configured, rows will not be appended")
	}

	if cfg.MongoDB.Enabled() {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		batchStore, sinks.Archive = mongoRepo, mongoRepo
		calOpts = append(calOpts, handlers.WithArchive(mongoRepo))
	} else {
		baseLogger.Warn("mongodb not configured, batches will not be archived")
	}

	vocab := inventory.DefaultVocabulary()
	if len(cfg.Vocabulary.ExtraUnits) > 0 {
		vocab, err = vocab.WithUnits(cfg.Vocabulary.ExtraUnits...)
		if err != nil {
			baseLogger.Fatal("invalid EXTRA_UNITS", zap.Error(err))
		}
	}
	parser := inventory.NewParser(vocab, baseLogger.Named("svc.inventory"))
	ledgerSvc := ledger.NewService(parser, sheetWriter, batchStore, baseLogger.Named("svc.ledger"))

	resolver := period.NewResolver(baseLogger.Named("svc.period"))
	scanner := workbook.NewScanner(cfg.Reporting.TotalMarker, baseLogger.Named("repo.workbook"))
	calOpts = append(calOpts, handlers.WithUploads(scanner))
	reportingSvc := reportingsvc.NewService(scanner, resolver, baseLogger.Named("svc.reporting"),
		reportingsvc.WithWorkers(cfg.Reporting.Workers),
		reportingsvc.WithFileTimeout(cfg.Reporting.FileTimeout))

	var messagingSvc whatsappsvc.MessagingService
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		metaSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, ledgerSvc, baseLogger.Named("svc.whatsapp"))
		messagingSvc = metaSvc
		if cfg.WhatsApp.ReportRecipient != "" {
			sinks.Notifier = metaSvc
		}
	} else {
		baseLogger.Warn("whatsapp credentials missing, webhook disabled")
	}

	engine := router.New(router.Handlers{
		Webhook:   handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp")),
		Inventory: handlers.NewInventoryHandler(ledgerSvc, baseLogger.Named("handlers.inventory")),
		Calendar:  handlers.NewCalendarHandler(resolver, reportingSvc, cfg.Reporting.Dir, baseLogger.Named("handlers.calendar"), calOpts...),
	}, baseLogger.Named("router"))

	if cfg.Reporting.Dir != "" {
		sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, sinks, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	} else {
		baseLogger.Warn("REPORT_DIR not set, monthly report job disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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
