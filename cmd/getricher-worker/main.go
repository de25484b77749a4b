package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"getricher/internal/cli"
	"getricher/internal/log"
	"getricher/internal/services"
	"getricher/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)
	logger.Info("Starting getricher-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg)
	defer result.Close()

	opts := []worker.Option{
		worker.WithPageSize(cfg.PageSize),
		worker.WithMaxPages(cfg.SyncMaxPages),
	}

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if sqliteRepo != nil {
		defer sqliteRepo.Close()
		opts = append(opts, worker.WithSnapshots(sqliteRepo))
	}
	if reports := cli.InitReportWriter(ctx, logger, cfg); reports != nil {
		opts = append(opts, worker.WithReports(reports))
	}

	refresher := worker.NewRefreshWorker(services.NewTransactionService(result.API, result.Tokens), opts...)

	scheduler := worker.NewScheduler(refresher, worker.SchedulerConfig{
		Interval: cfg.SyncInterval,
		Filter:   cfg.DateFilter(),
	})

	g, gctx := errgroup.WithContext(ctx)

	// Refresh requests from the server are optional; without a broker only
	// the scheduled refresh runs.
	if amqpClient := cli.InitAMQP(logger, cfg); amqpClient != nil {
		defer amqpClient.Close()
		g.Go(func() error {
			err := amqpClient.ConsumeRefreshRequests(gctx, refresher.HandleRefreshMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
				return err
			}
			return nil
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err, log.FieldOperation, log.OpShutdown)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
