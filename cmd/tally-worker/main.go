package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/worker"
)

const (
	resyncInterval = time.Hour
	cleanupEvery   = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("tally-worker needs AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	logger.Info("Starting tally-worker")
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		cancel()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend))

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// The worker reads the ledger only to reconcile the mirror. It never
	// publishes, so the broker is opened separately for consuming.
	amqpCfg := bcfg.AMQP
	bcfg.AMQP.URL = ""
	res, err := factory.Open(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("open ledger store: %w", err)
	}
	defer res.Close()

	mirror, err := factory.OpenMirror(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := factory.OpenBroker(ctx, amqpCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	mw := worker.NewMirrorWorker(res.Store, mirror, logger.WithComponent(log.ComponentWorker))

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register(mw.SeenEvents())
	caches.StartCleanup(cleanupEvery)
	defer caches.Stop()

	logger.Info("Performing startup sync check...")
	if sr, err := mw.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	} else {
		logger.Info("Startup sync check complete", "appended", sr.Appended, "removed", sr.Removed, "errors", sr.Errors)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeEvents(gctx, mw.HandleEvent)
	})
	g.Go(func() error {
		// Periodic resync catches events lost while the worker was down.
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := mw.StartupSyncCheck(gctx); err != nil {
					logger.Error("Periodic resync failed", log.FieldError, err)
				}
			}
		}
	})
	return g.Wait()
}
