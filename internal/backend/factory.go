// Package backend builds the ledger the export worker writes to.
package backend

import (
	"context"
	"fmt"

	"spry/internal/log"
	"spry/internal/sheets"
	gsheet "spry/internal/sheets/google"
	"spry/internal/sheets/memory"
)

// Factory creates ledgers based on configuration.
type Factory struct {
	logger       *log.Logger
	sheetsLedger func(ctx context.Context, cfg gsheet.Config) (sheets.LedgerWriter, error)
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{
		logger: logger.WithComponent(log.ComponentSheets),
		sheetsLedger: func(ctx context.Context, cfg gsheet.Config) (sheets.LedgerWriter, error) {
			return gsheet.New(ctx, cfg)
		},
	}
}

func (f *Factory) CreateLedger(ctx context.Context, cfg Config) (sheets.LedgerWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SheetsLedger:
		ledger, err := f.sheetsLedger(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
		}
		f.logger.Info("Initialized Google Sheets ledger", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return ledger, nil
	case MemoryLedger:
		f.logger.Info("Initialized memory ledger")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported ledger type: %s", cfg.Type)
}
