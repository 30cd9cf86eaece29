package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spry/internal/amqp"
	"spry/internal/core"
	"spry/internal/sheets"
	"spry/internal/sheets/memory"
	"spry/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLedger struct{}

func (failingLedger) AppendRow(context.Context, sheets.LedgerRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "spry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestExportWorker_EntryEvent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	q := repo.Queries()

	session, err := q.CreateSession(ctx, 1, time.Now())
	require.NoError(t, err)
	entry, err := q.InsertEntry(ctx, core.Entry{
		UserID: 1, SessionID: session.ID, Type: core.EntryExpense, Category: "food",
		Amount: core.Money{Cents: 4250}, Title: "Groceries", Note: "weekly",
	})
	require.NoError(t, err)

	ledger := memory.New()
	w := NewExportWorker(repo, ledger)

	ev := amqp.NewChangeEvent(amqp.EventEntryCreated, 1, entry.ID)
	require.NoError(t, w.HandleEvent(ctx, ev))

	rows := ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, ev.ID, rows[0].EventID)
	assert.Equal(t, "expense", rows[0].Type)
	assert.Equal(t, "food", rows[0].Category)
	assert.Equal(t, "42.50", rows[0].Amount)
	assert.Equal(t, "Groceries - weekly", rows[0].Detail)
}

func TestExportWorker_GoalAndBudgetEvents(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	q := repo.Queries()

	goal, err := q.InsertGoal(ctx, core.SavingsGoal{UserID: 1, Note: "Trip", GoalAmount: core.Money{Cents: 50000}})
	require.NoError(t, err)
	session, err := q.CreateSession(ctx, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, q.UpdateSessionTotals(ctx, session.ID, core.Money{Cents: 200000}, core.Money{Cents: 50000}))

	ledger := memory.New()
	w := NewExportWorker(repo, ledger)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewChangeEvent(amqp.EventGoalUpdated, 1, goal.ID)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewChangeEvent(amqp.EventBudgetSubmitted, 1, session.ID)))

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, core.CategorySavingsGoal, rows[0].Category)
	assert.Equal(t, "Trip: 0.00 of 500.00", rows[0].Detail)
	assert.Equal(t, "2000.00", rows[1].Amount)
	assert.Equal(t, "unallocated 500.00", rows[1].Detail)
}

func TestExportWorker_DeletedAndVanishedSubjects(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	w := NewExportWorker(newRepo(t), ledger)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewChangeEvent(amqp.EventEntryDeleted, 1, 5)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewChangeEvent(amqp.EventEntryUpdated, 1, 6)))

	rows := ledger.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "deleted", rows[0].Detail)
	assert.Equal(t, "gone", rows[1].Detail)
	assert.Empty(t, rows[1].Amount)
}

func TestExportWorker_LedgerFailureIsReturned(t *testing.T) {
	w := NewExportWorker(newRepo(t), failingLedger{})
	err := w.HandleEvent(context.Background(), amqp.NewChangeEvent(amqp.EventEntryDeleted, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
