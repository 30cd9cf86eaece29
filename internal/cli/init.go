// Package cli provides common initialization shared by cmd/spry,
// cmd/spry-worker and cmd/spryctl.
package cli

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"spry/internal/amqp"
	"spry/internal/config"
	"spry/internal/log"
	"spry/internal/services"
	"spry/internal/storage"
)

// SetupLogger installs the default logger from LOG_LEVEL and LOG_FORMAT.
// Invalid settings fall back to info level text output.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger, err := log.Setup(cfg.LogLevel, strings.ToLower(cfg.LogFormat))
	if err != nil {
		logger, _ = log.Setup("info", "text")
		logger.Warn("Invalid logging settings, using info/text", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitPublisher connects the change-event publisher. It returns a nil
// interface when AMQP is not configured or unreachable, so writes keep
// working without events.
func InitPublisher(ctx context.Context, logger *log.Logger, cfg *config.Config) services.EventPublisher {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, change events disabled")
		return nil
	}

	client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 3)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
		return nil
	}

	logger.Info("AMQP publisher connected",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}
