// Package cli provides the shared process bootstrap of the tally commands
// and the tally command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/backend"
	"tally/internal/categorize"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/statement"
)

// SetupLogger builds the process logger at level and makes it the slog
// default. An unknown level falls back to info.
func SetupLogger(level, component string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: component, Output: os.Stdout})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads environment files for local development. A missing file
// is not an error; variables already set win.
func LoadEnvFile(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// NewLedger opens the configured backend and builds the ledger service over
// it. The classifier rules come from CATEGORIES_FILE and extra statement
// headers from STATEMENT_COLUMNS when set. Close the
// returned Result when done.
func NewLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...services.Option) (*services.LedgerService, *backend.Result, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).Open(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	base := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentLedger))}
	if cfg.CategoriesFile != "" {
		classifier, err := categorize.LoadFile(cfg.CategoriesFile)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("load categories: %w", err)
		}
		base = append(base, services.WithClassifier(classifier))
	}
	if cfg.StatementColumns != "" {
		aliases, err := statement.ParseAliases(cfg.StatementColumns)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("statement columns: %w", err)
		}
		base = append(base, services.WithParser(statement.NewParser(statement.WithAliases(aliases...))))
	}
	if res.Publisher != nil {
		base = append(base, services.WithPublisher(res.Publisher))
	}
	return services.NewLedgerService(res.Store, append(base, opts...)...), res, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
