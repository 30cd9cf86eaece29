package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		field   string
		wantErr bool
	}{
		{
			name:  "expense food",
			entry: Entry{Type: EntryExpense, Category: "food", Amount: Money{Cents: 4250}},
		},
		{
			name:  "saving roth ira",
			entry: Entry{Type: EntrySaving, Category: "roth ira", Amount: Money{Cents: 100}},
		},
		{
			name:    "expense with saving category",
			entry:   Entry{Type: EntryExpense, Category: "stocks", Amount: Money{Cents: 100}},
			field:   "category",
			wantErr: true,
		},
		{
			name:    "saving with expense category",
			entry:   Entry{Type: EntrySaving, Category: "rent", Amount: Money{Cents: 100}},
			field:   "category",
			wantErr: true,
		},
		{
			name:    "zero amount",
			entry:   Entry{Type: EntryExpense, Category: "food"},
			field:   "amount",
			wantErr: true,
		},
		{
			name:    "unknown type",
			entry:   Entry{Type: "income", Category: "food", Amount: Money{Cents: 1}},
			field:   "type",
			wantErr: true,
		},
		{
			name:    "goal on non goal category",
			entry:   Entry{Type: EntrySaving, Category: "stocks", Amount: Money{Cents: 1}, GoalID: int64Ptr(3)},
			field:   "goal_id",
			wantErr: true,
		},
		{
			name:  "goal on savingsgoal",
			entry: Entry{Type: EntrySaving, Category: CategorySavingsGoal, Amount: Money{Cents: 1}, GoalID: int64Ptr(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseEntryType(t *testing.T) {
	typ, err := ParseEntryType(" Saving ")
	require.NoError(t, err)
	assert.Equal(t, EntrySaving, typ)

	_, err = ParseEntryType("income")
	assert.True(t, IsValidation(err))
}

func TestTypeOfCategory(t *testing.T) {
	typ, ok := TypeOfCategory("401k")
	assert.True(t, ok)
	assert.Equal(t, EntrySaving, typ)

	typ, ok = TypeOfCategory("utilities")
	assert.True(t, ok)
	assert.Equal(t, EntryExpense, typ)

	_, ok = TypeOfCategory("vacation")
	assert.False(t, ok)
}

func TestSavingsGoalApplyProgress(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := SavingsGoal{GoalAmount: Money{Cents: 50000}}

	changed := g.ApplyProgress(Money{Cents: 35000}, now)
	assert.True(t, changed)
	assert.False(t, g.Completed)
	assert.Nil(t, g.CompletedAt)

	changed = g.ApplyProgress(Money{Cents: 50000}, now)
	assert.True(t, changed)
	assert.True(t, g.Completed)
	require.NotNil(t, g.CompletedAt)
	assert.Equal(t, now, *g.CompletedAt)

	// Staying complete keeps the original stamp.
	changed = g.ApplyProgress(Money{Cents: 60000}, now.Add(time.Hour))
	assert.True(t, changed)
	assert.Equal(t, now, *g.CompletedAt)

	changed = g.ApplyProgress(Money{Cents: 60000}, now.Add(2*time.Hour))
	assert.False(t, changed)

	changed = g.ApplyProgress(Money{Cents: 30000}, now)
	assert.True(t, changed)
	assert.False(t, g.Completed)
	assert.Nil(t, g.CompletedAt)
}

func TestUnallocated(t *testing.T) {
	allocs := []Allocation{
		{Category: "food", Amount: Money{Cents: 30000}},
		{Category: "rent", Amount: Money{Cents: 120000}},
	}
	assert.Equal(t, Money{Cents: 50000}, Unallocated(Money{Cents: 200000}, allocs))
	assert.Equal(t, Money{}, Unallocated(Money{Cents: 100000}, allocs))
	assert.Equal(t, Money{Cents: 100}, Unallocated(Money{Cents: 100}, nil))
}

func TestErrorTaxonomy(t *testing.T) {
	nf := NewNotFoundError("entry", 7)
	assert.True(t, IsNotFound(nf))
	assert.Equal(t, "entry 7 not found", nf.Error())
	assert.Equal(t, "no active budget session found", NewNotFoundError("active budget session", 0).Error())

	tx := &TransactionError{Op: "commit", Err: assert.AnError}
	assert.ErrorIs(t, tx, ErrTransaction)
	assert.ErrorIs(t, tx, assert.AnError)
	assert.False(t, IsValidation(tx))
}
