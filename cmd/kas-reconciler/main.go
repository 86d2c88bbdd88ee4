// The reconciler heals drifted plan totals on a schedule and keeps an audit
// log of ledger events flowing through the broker.
package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"kas/internal/amqp"
	"kas/internal/cli"
	"kas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	budget := services.NewBudgetService(repo, nil)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	scheduler := cron.New(cron.WithLocation(cfg.Timezone))
	_, err := scheduler.AddFunc(cfg.ReconcileSchedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		corrected, err := budget.Reconcile(runCtx)
		if err != nil {
			slog.ErrorContext(runCtx, "Scheduled reconcile failed", "error", err)
			return
		}
		slog.InfoContext(runCtx, "Scheduled reconcile finished", "corrected", len(corrected))
	})
	if err != nil {
		logger.Error("Invalid reconcile schedule", "error", err, "schedule", cfg.ReconcileSchedule)
		return
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start()
		logger.Info("Reconcile scheduler started", "schedule", cfg.ReconcileSchedule)
		<-gctx.Done()
		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		return nil
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			return
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeLedgerEvents(gctx, func(event *amqp.LedgerEvent) error {
				slog.Info("Ledger event",
					"entity", event.Entity,
					"action", event.Action,
					"id", event.ID,
					"occurred", event.Occurred)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - event audit log off")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Reconciler stopped with error", "error", err)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reconciler stopped gracefully")
}
