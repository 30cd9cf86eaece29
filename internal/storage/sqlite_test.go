package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spry/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
	now  time.Time
}

func (suite *RepositoryTestSuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(suite.T().TempDir(), "spry.db"))
	require.NoError(suite.T(), err, "failed to create test database")
	suite.repo = repo
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
}

func (suite *RepositoryTestSuite) TearDownTest() {
	if suite.repo != nil {
		suite.repo.Close()
	}
}

func (suite *RepositoryTestSuite) session(userID int64) *core.BudgetSession {
	s, err := suite.repo.Queries().CreateSession(suite.ctx, userID, suite.now)
	require.NoError(suite.T(), err)
	return s
}

func (suite *RepositoryTestSuite) TestMigrationsAreIdempotent() {
	require.NoError(suite.T(), RunMigrations(suite.repo.Path()))

	version, dirty, err := MigrationVersion(suite.repo.Path())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), uint(1), version)
	assert.False(suite.T(), dirty)
}

func (suite *RepositoryTestSuite) TestOneActiveSessionPerUser() {
	q := suite.repo.Queries()
	first := suite.session(1)
	assert.True(suite.T(), first.IsActive)

	_, err := q.CreateSession(suite.ctx, 1, suite.now)
	assert.Error(suite.T(), err, "second active session must violate the unique index")

	// Another user is unaffected.
	suite.session(2)

	require.NoError(suite.T(), q.DeactivateSession(suite.ctx, first.ID))
	second := suite.session(1)

	active, err := q.GetActiveSession(suite.ctx, 1)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), active)
	assert.Equal(suite.T(), second.ID, active.ID)
}

func (suite *RepositoryTestSuite) TestGetActiveSessionNone() {
	s, err := suite.repo.Queries().GetActiveSession(suite.ctx, 42)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), s)

	_, err = suite.repo.Queries().GetSession(suite.ctx, 42, 1)
	assert.True(suite.T(), core.IsNotFound(err))
}

func (suite *RepositoryTestSuite) TestAllocationUpsertAndPrune() {
	q := suite.repo.Queries()
	s := suite.session(1)

	require.NoError(suite.T(), q.UpsertAllocation(suite.ctx, s.ID, "food", core.Money{Cents: 30000}))
	require.NoError(suite.T(), q.UpsertAllocation(suite.ctx, s.ID, "rent", core.Money{Cents: 120000}))
	require.NoError(suite.T(), q.UpsertAllocation(suite.ctx, s.ID, "food", core.Money{Cents: 40000}))

	allocs, err := q.ListAllocations(suite.ctx, s.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), allocs, 2)
	assert.Equal(suite.T(), "food", allocs[0].Category)
	assert.Equal(suite.T(), int64(40000), allocs[0].Amount.Cents)

	n, err := q.DeleteAllocationsExcept(suite.ctx, s.ID, []string{"food"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	n, err = q.DeleteAllocationsExcept(suite.ctx, s.ID, nil)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)
}

func (suite *RepositoryTestSuite) TestEntriesNewestFirst() {
	q := suite.repo.Queries()
	s := suite.session(1)

	for i, amount := range []int64{100, 200, 300} {
		_, err := q.InsertEntry(suite.ctx, core.Entry{
			UserID: 1, SessionID: s.ID, Type: core.EntryExpense, Category: "food",
			Amount: core.Money{Cents: amount}, CreatedAt: suite.now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(suite.T(), err)
	}

	entries, err := q.ListEntries(suite.ctx, 1, nil)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, 3)
	assert.Equal(suite.T(), int64(300), entries[0].Amount.Cents)
	assert.Equal(suite.T(), int64(100), entries[2].Amount.Cents)

	other, err := q.ListEntries(suite.ctx, 2, nil)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), other)
}

func (suite *RepositoryTestSuite) TestGoalSumAndDetach() {
	q := suite.repo.Queries()
	s := suite.session(1)

	g, err := q.InsertGoal(suite.ctx, core.SavingsGoal{
		UserID: 1, Note: "Trip", GoalAmount: core.Money{Cents: 50000}, CreatedAt: suite.now,
	})
	require.NoError(suite.T(), err)

	for _, amount := range []int64{10000, 15000} {
		_, err := q.InsertEntry(suite.ctx, core.Entry{
			UserID: 1, SessionID: s.ID, Type: core.EntrySaving, Category: core.CategorySavingsGoal,
			Amount: core.Money{Cents: amount}, GoalID: &g.ID, CreatedAt: suite.now,
		})
		require.NoError(suite.T(), err)
	}

	sum, err := q.SumGoalSavings(suite.ctx, 1, g.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(25000), sum.Cents)

	ids, err := q.SessionGoalIDs(suite.ctx, s.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []int64{g.ID}, ids)

	n, err := q.DetachGoalEntries(suite.ctx, 1, g.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), n)

	deleted, err := q.DeleteGoal(suite.ctx, 1, g.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), deleted)

	sum, err = q.SumGoalSavings(suite.ctx, 1, g.ID)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), sum.Cents)
}

func (suite *RepositoryTestSuite) TestDeleteSessionCascades() {
	q := suite.repo.Queries()
	s := suite.session(1)

	require.NoError(suite.T(), q.UpsertAllocation(suite.ctx, s.ID, "food", core.Money{Cents: 100}))
	_, err := q.InsertEntry(suite.ctx, core.Entry{
		UserID: 1, SessionID: s.ID, Type: core.EntryExpense, Category: "food",
		Amount: core.Money{Cents: 100}, CreatedAt: suite.now,
	})
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), q.DeleteSession(suite.ctx, s.ID))

	allocs, err := q.ListAllocations(suite.ctx, s.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), allocs)

	entries, err := q.ListEntries(suite.ctx, 1, nil)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), entries)
}

func (suite *RepositoryTestSuite) TestWithTxRollsBack() {
	errBoom := core.NewValidationError("amount", "boom")

	err := suite.repo.WithTx(suite.ctx, func(q *Queries) error {
		if _, err := q.CreateSession(suite.ctx, 7, suite.now); err != nil {
			return err
		}
		return errBoom
	})
	assert.True(suite.T(), errors.Is(err, errBoom))
	assert.False(suite.T(), errors.Is(err, core.ErrTransaction))

	s, err := suite.repo.Queries().GetActiveSession(suite.ctx, 7)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), s, "rolled back session must not be visible")
}

func (suite *RepositoryTestSuite) TestWithTxWrapsStorageFailures() {
	err := suite.repo.WithTx(suite.ctx, func(q *Queries) error {
		// goal_amount_cents has a CHECK (> 0) constraint.
		_, err := q.InsertGoal(suite.ctx, core.SavingsGoal{UserID: 1, Note: "x", CreatedAt: suite.now})
		return err
	})
	assert.ErrorIs(suite.T(), err, core.ErrTransaction)
}

func (suite *RepositoryTestSuite) TestTotalsByType() {
	q := suite.repo.Queries()
	s := suite.session(1)
	add := func(typ core.EntryType, category string, cents int64) {
		_, err := q.InsertEntry(suite.ctx, core.Entry{
			UserID: 1, SessionID: s.ID, Type: typ, Category: category,
			Amount: core.Money{Cents: cents}, CreatedAt: suite.now,
		})
		require.NoError(suite.T(), err)
	}
	add(core.EntryExpense, "food", 4250)
	add(core.EntryExpense, "rent", 100000)
	add(core.EntrySaving, "stocks", 5000)

	expense, saving, err := q.TotalsByType(suite.ctx, 1, s.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(104250), expense.Cents)
	assert.Equal(suite.T(), int64(5000), saving.Cents)

	sums, err := q.SumByCategory(suite.ctx, 1, s.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), sums, 3)
	assert.Equal(suite.T(), "food", sums[0].Category)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
