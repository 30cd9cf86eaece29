package sheets

import (
	"context"
	"time"
)

// LedgerRow is one line of the exported change ledger. Amount is the
// formatted decimal ("42.50") or empty when the subject has no amount.
type LedgerRow struct {
	OccurredAt time.Time
	EventID    string
	Kind       string
	UserID     int64
	SubjectID  int64
	Type       string
	Category   string
	Amount     string
	Detail     string
}

// Values renders the row in column order A:I.
func (r LedgerRow) Values() []any {
	return []any{
		r.OccurredAt.UTC().Format(time.RFC3339),
		r.EventID,
		r.Kind,
		r.UserID,
		r.SubjectID,
		r.Type,
		r.Category,
		r.Amount,
		r.Detail,
	}
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}
)
