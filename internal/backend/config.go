package backend

import (
	"fmt"

	"tally/internal/amqp"
	"tally/internal/config"
	gsheet "tally/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %v)", appConfig.DataBackend, GetBackendTypes())
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQP: amqp.Config{
			URL:         appConfig.AMQPURL,
			Exchange:    appConfig.AMQPExchange,
			EventQueue:  appConfig.AMQPQueue,
			ReportQueue: appConfig.AMQPReportQueue,
		},
	}, nil
}

// MirrorConfigFromApp returns the Google Sheets settings of the mirror.
func MirrorConfigFromApp(appConfig *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetName:       appConfig.GoogleSheetName,
		CredentialsJSON: appConfig.GoogleServiceAccountJSON,
		CredentialsFile: appConfig.GoogleServiceAccountFile,
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []Type {
	return []Type{SQLiteBackend, MemoryBackend}
}
