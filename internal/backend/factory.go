package backend

import (
	"context"
	"fmt"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/sheets"
	gsheet "tally/internal/sheets/google"
	"tally/internal/sheets/memory"
	"tally/internal/storage"
	memstore "tally/internal/storage/memory"
)

// Factory opens backends, logging what it creates.
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentBackend})
	}
	return &Factory{logger: logger}
}

// Open creates the Store and, when configured, the AMQP client. A broker
// that cannot be reached is logged and the ledger runs without events.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res = &Result{Store: repo, Ready: repo.Ping, cleanup: []CleanupFunc{repo.Close}}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		res = &Result{Store: memstore.New(), Ready: func(context.Context) error { return nil }}
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}

	if cfg.AMQP.URL != "" {
		client, err := f.OpenBroker(ctx, cfg.AMQP)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.Publisher = client
			res.cleanup = append(res.cleanup, client.Close)
		}
	}
	return res, nil
}

// OpenBroker dials the broker. Callers that cannot run without it use this
// directly instead of Open.
func (f *Factory) OpenBroker(ctx context.Context, cfg amqp.Config) (*amqp.Client, error) {
	client, err := amqp.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.Exchange,
		"event_queue", cfg.EventQueue,
		"report_queue", cfg.ReportQueue)
	return client, nil
}

// OpenMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-memory mirror otherwise.
func (f *Factory) OpenMirror(ctx context.Context, appConfig *config.Config) (sheets.Mirror, error) {
	if !appConfig.MirrorEnabled() {
		f.logger.InfoContext(ctx, "No spreadsheet configured, mirroring in memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, MirrorConfigFromApp(appConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror",
		"spreadsheet_id", appConfig.GoogleSpreadsheetID,
		"sheet", appConfig.GoogleSheetName)
	return client, nil
}
