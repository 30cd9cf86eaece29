package backend

import (
	"errors"
	"fmt"
	"strings"

	"spry/internal/config"
)

// LedgerType selects where exported change rows go.
type LedgerType string

const (
	SheetsLedger LedgerType = "sheets"
	MemoryLedger LedgerType = "memory"
)

func (t LedgerType) String() string {
	return string(t)
}

func (t LedgerType) IsValid() bool {
	switch t {
	case SheetsLedger, MemoryLedger:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to build a ledger.
type Config struct {
	Type LedgerType

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig picks the ledger type from LEDGER_BACKEND, falling back to
// sheets when a spreadsheet is configured and memory otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	ledgerType := LedgerType(strings.ToLower(strings.TrimSpace(appConfig.LedgerBackend)))
	if ledgerType == "" {
		ledgerType = MemoryLedger
		if appConfig.SheetsEnabled() {
			ledgerType = SheetsLedger
		}
	}

	cfg := Config{
		Type:                     ledgerType,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid ledger type: %s", c.Type)
	}
	if c.Type == SheetsLedger && strings.TrimSpace(c.GoogleSpreadsheetID) == "" {
		return errors.New("spreadsheet id is required for sheets ledger")
	}
	return nil
}
