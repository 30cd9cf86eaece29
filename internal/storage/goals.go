package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spry/internal/core"
)

const goalColumns = `id, user_id, note, goal_amount_cents, allocated_amount_cents, completed, completed_at, created_at`

func scanGoal(row rowScanner) (*core.SavingsGoal, error) {
	var (
		g           core.SavingsGoal
		completed   int64
		completedAt sql.NullString
		createdAt   string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Note, &g.GoalAmount.Cents, &g.AllocatedAmount.Cents,
		&completed, &completedAt, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	g.CreatedAt = t
	g.Completed = completed == 1
	if completedAt.Valid {
		ct, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		g.CompletedAt = &ct
	}
	return &g, nil
}

func (q *Queries) InsertGoal(ctx context.Context, g core.SavingsGoal) (*core.SavingsGoal, error) {
	var completedAt any
	if g.CompletedAt != nil {
		completedAt = formatTime(*g.CompletedAt)
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO goals (user_id, note, goal_amount_cents, allocated_amount_cents, completed, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Note, g.GoalAmount.Cents, g.AllocatedAmount.Cents, boolToInt(g.Completed), completedAt,
		formatTime(g.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return q.GetGoal(ctx, g.UserID, id)
}

func (q *Queries) GetGoal(ctx context.Context, userID, goalID int64) (*core.SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?`, userID, goalID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("goal", goalID)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns the user's goals, newest first.
func (q *Queries) ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (q *Queries) UpdateGoalProgress(ctx context.Context, g core.SavingsGoal) error {
	var completedAt any
	if g.CompletedAt != nil {
		completedAt = formatTime(*g.CompletedAt)
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE goals SET allocated_amount_cents = ?, completed = ?, completed_at = ?
		 WHERE id = ? AND user_id = ?`,
		g.AllocatedAmount.Cents, boolToInt(g.Completed), completedAt, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	return nil
}

func (q *Queries) UpdateGoalDetails(ctx context.Context, g core.SavingsGoal) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE goals SET note = ?, goal_amount_cents = ? WHERE id = ? AND user_id = ?`,
		g.Note, g.GoalAmount.Cents, g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

// DeleteGoal removes the goal and reports whether a row was deleted.
func (q *Queries) DeleteGoal(ctx context.Context, userID, goalID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, goalID)
	if err != nil {
		return false, fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete goal: %w", err)
	}
	return n > 0, nil
}

// DetachGoalEntries clears goal_id on every entry linked to the goal.
func (q *Queries) DetachGoalEntries(ctx context.Context, userID, goalID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE entries SET goal_id = NULL WHERE user_id = ? AND goal_id = ?`, userID, goalID)
	if err != nil {
		return 0, fmt.Errorf("detach goal entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach goal entries: %w", err)
	}
	return n, nil
}

// SumGoalSavings sums the saving entries linked to the goal.
func (q *Queries) SumGoalSavings(ctx context.Context, userID, goalID int64) (core.Money, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM entries
		 WHERE user_id = ? AND goal_id = ? AND type = 'saving'`, userID, goalID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum goal savings: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (q *Queries) CountCompletedGoals(ctx context.Context, userID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goals WHERE user_id = ? AND completed = 1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed goals: %w", err)
	}
	return n, nil
}

func (q *Queries) ListGoalIDs(ctx context.Context, userID int64) ([]int64, error) {
	return q.int64Column(ctx, `SELECT id FROM goals WHERE user_id = ? ORDER BY id`, userID)
}

func (q *Queries) int64Column(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
