package main

import (
	"context"
	"fmt"
	"os"

	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("report-worker needs AMQP_URL to deliver reports")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	logger.Info("Starting report-worker")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Report worker stopped with error", log.FieldError, err)
		cancel()
		os.Exit(1)
	}
	logger.Info("Report worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	schedule, err := services.NewReportSchedule(cfg.ReportWeekday, cfg.ReportHour, cfg.ReportTimezone)
	if err != nil {
		return err
	}

	ledger, res, err := cli.NewLedger(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer res.Close()
	if res.Publisher == nil {
		return fmt.Errorf("broker unavailable at startup")
	}

	processor := services.NewReportProcessor(ledger, res.Publisher, schedule, services.ReportProcessorConfig{
		CheckInterval: cfg.ReportCheckInterval,
		Currency:      cfg.Currency,
	})
	logger.Info("Weekly report configured",
		"schedule", schedule.String(),
		"check_interval", cfg.ReportCheckInterval)
	return processor.Run(ctx)
}
