package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spry/internal/amqp"
	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/sheets"
	"spry/internal/storage"
)

// ExportWorker appends one ledger row per committed change. Events carry
// only ids, so the worker reads current state and records what it finds.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	ledger  sheets.LedgerWriter
	logger  *log.Logger
}

func NewExportWorker(storage *storage.SQLiteRepository, ledger sheets.LedgerWriter) *ExportWorker {
	return &ExportWorker{
		storage: storage,
		ledger:  ledger,
		logger:  log.Default().WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single change event from AMQP. A subject that was
// removed after the event was published is recorded with an empty body.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.ChangeEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		log.FieldEventID, ev.ID,
		log.FieldEventKind, ev.Kind,
		log.FieldUserID, ev.UserID)

	row := sheets.LedgerRow{
		OccurredAt: ev.Timestamp,
		EventID:    ev.ID,
		Kind:       string(ev.Kind),
		UserID:     ev.UserID,
		SubjectID:  ev.SubjectID,
	}

	err := w.describe(ctx, ev, &row)
	switch {
	case errors.Is(err, core.ErrNotFound):
		row.Detail = "gone"
	case err != nil:
		return fmt.Errorf("load %s %d: %w", ev.Subject(), ev.SubjectID, err)
	}

	ref, err := w.ledger.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	w.logger.InfoContext(ctx, "Change exported",
		log.FieldEventID, ev.ID,
		log.FieldSheetsRef, ref)
	return nil
}

func (w *ExportWorker) describe(ctx context.Context, ev *amqp.ChangeEvent, row *sheets.LedgerRow) error {
	if strings.HasSuffix(string(ev.Kind), ".deleted") {
		row.Detail = "deleted"
		return nil
	}

	q := w.storage.Queries()
	switch ev.Subject() {
	case "entry":
		e, err := q.GetEntry(ctx, ev.UserID, ev.SubjectID)
		if err != nil {
			return err
		}
		row.Type = string(e.Type)
		row.Category = e.Category
		row.Amount = e.Amount.String()
		row.Detail = entryDetail(e)
	case "goal":
		g, err := q.GetGoal(ctx, ev.UserID, ev.SubjectID)
		if err != nil {
			return err
		}
		row.Type = string(core.EntrySaving)
		row.Category = core.CategorySavingsGoal
		row.Amount = g.AllocatedAmount.String()
		row.Detail = fmt.Sprintf("%s: %s of %s", g.Note, g.AllocatedAmount, g.GoalAmount)
		if g.Completed {
			row.Detail += " (completed)"
		}
	case "budget":
		s, err := q.GetSession(ctx, ev.UserID, ev.SubjectID)
		if err != nil {
			return err
		}
		row.Amount = s.TotalIncome.String()
		row.Detail = "unallocated " + s.UnallocatedIncome.String()
	}
	return nil
}

func entryDetail(e *core.Entry) string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(e.Title); t != "" {
		parts = append(parts, t)
	}
	if n := strings.TrimSpace(e.Note); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, " - ")
}
