package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"getricher/internal/cli"
	apphttp "getricher/internal/http"
	"getricher/internal/log"
	"getricher/internal/pagination"
	"getricher/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger().WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	result := cli.InitBackend(ctx, logger, cfg)
	defer result.Close()

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	amqpClient := cli.InitAMQP(logger, cfg)

	opts := apphttp.Options{
		Addr:          ":" + cfg.Port,
		Tokens:        result.Tokens,
		DefaultFilter: cfg.DateFilter(),
		RateLimit:     cfg.APIRateLimit,
		RateBurst:     cfg.APIRateBurst,
		Logger:        logger.WithComponent(log.ComponentHTTP),
	}

	// Optional integrations stay nil interfaces when disabled.
	var accountSaver services.AccountSaver
	if sqliteRepo != nil {
		accountSaver = sqliteRepo
		opts.Snapshots = sqliteRepo
	}
	if amqpClient != nil {
		opts.Publisher = amqpClient
	}
	if result.TokenFile != nil {
		opts.TokenWriter = result.TokenFile
	}

	transactions := services.NewTransactionService(result.API, result.Tokens)
	opts.Engine = pagination.New(transactions,
		pagination.WithPageSize(cfg.PageSize),
		pagination.WithLogger(logger.WithComponent(log.ComponentPagination)))
	opts.Accounts = services.NewAccountService(result.API, result.Tokens, accountSaver)

	srv := apphttp.NewServer(opts)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if sqliteRepo != nil {
			if err := sqliteRepo.Close(); err != nil {
				logger.Warn("Failed to close SQLite repository", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting getricher server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"page_size", cfg.PageSize,
		log.FieldOperation, log.OpStartup)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
