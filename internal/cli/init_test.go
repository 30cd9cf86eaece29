package cli

import (
	"context"
	"testing"

	"spry/internal/config"
)

func TestSetupLoggerFallsBack(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "verbose", LogFormat: "text"})
	if logger == nil {
		t.Fatal("expected a logger for an invalid level")
	}

	logger = SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "JSON"})
	if logger == nil {
		t.Fatal("expected a logger for an upper-case format")
	}
}

func TestInitPublisherDisabledWithoutURL(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "error", LogFormat: "text"})
	if pub := InitPublisher(context.Background(), logger, &config.Config{}); pub != nil {
		t.Fatalf("expected nil publisher, got %T", pub)
	}
}
