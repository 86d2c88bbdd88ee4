package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kas/internal/amqp"
	"kas/internal/cli"
	apphttp "kas/internal/http"
	"kas/internal/members"
	"kas/internal/services"
	"kas/internal/sheets"
	gsheet "kas/internal/sheets/google"
	sheetmem "kas/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	roster, err := members.NewFromFile(cfg.RosterFile)
	if err != nil {
		logger.Error("Failed to load member roster", "error", err, "path", cfg.RosterFile)
		return
	}

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			return
		}
		defer client.Close()
		events = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var publisher sheets.Publisher
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			return
		}
		publisher = client
		logger.Info("Transparency sheet publisher initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		publisher = sheetmem.New()
		logger.Info("Using in-memory transparency publisher - no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, cfg.APIToken, cfg.Timezone,
		services.NewBudgetService(repo, events),
		services.NewLedgerService(repo, events),
		services.NewRegistryService(repo),
		services.NewReportService(repo, roster, publisher, cfg.DuesCategory),
		services.NewDuesService(repo, roster, events, cfg.DuesCategory),
	)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting kas server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
