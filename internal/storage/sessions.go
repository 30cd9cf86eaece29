package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"spry/internal/core"
)

const sessionColumns = `id, user_id, total_income_cents, unallocated_income_cents, is_active, created_at`

func scanSession(row rowScanner) (*core.BudgetSession, error) {
	var (
		s         core.BudgetSession
		active    int64
		createdAt string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.TotalIncome.Cents, &s.UnallocatedIncome.Cents, &active, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	s.IsActive = active == 1
	s.CreatedAt = t
	return &s, nil
}

// GetActiveSession returns the user's active session, or nil when there is none.
func (q *Queries) GetActiveSession(ctx context.Context, userID int64) (*core.BudgetSession, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM budget_sessions WHERE user_id = ? AND is_active = 1`, userID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

func (q *Queries) GetSession(ctx context.Context, userID, sessionID int64) (*core.BudgetSession, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM budget_sessions WHERE user_id = ? AND id = ?`, userID, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("budget session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// CreateSession inserts a new active session with zero income.
func (q *Queries) CreateSession(ctx context.Context, userID int64, now time.Time) (*core.BudgetSession, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budget_sessions (user_id, total_income_cents, unallocated_income_cents, is_active, created_at)
		 VALUES (?, 0, 0, 1, ?)`, userID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return q.GetSession(ctx, userID, id)
}

func (q *Queries) UpdateSessionTotals(ctx context.Context, sessionID int64, income, unallocated core.Money) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE budget_sessions SET total_income_cents = ?, unallocated_income_cents = ? WHERE id = ?`,
		income.Cents, unallocated.Cents, sessionID)
	if err != nil {
		return fmt.Errorf("update session totals: %w", err)
	}
	return nil
}

func (q *Queries) DeactivateSession(ctx context.Context, sessionID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE budget_sessions SET is_active = 0 WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// DeleteSession removes a session. Allocations and entries cascade.
func (q *Queries) DeleteSession(ctx context.Context, sessionID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM budget_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (q *Queries) ListAllocations(ctx context.Context, sessionID int64) ([]core.Allocation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT session_id, category, amount_cents FROM budget_allocations
		 WHERE session_id = ? ORDER BY category`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	allocations := []core.Allocation{}
	for rows.Next() {
		var a core.Allocation
		if err := rows.Scan(&a.SessionID, &a.Category, &a.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}

// UpsertAllocation writes one allocation keyed by (session, category).
func (q *Queries) UpsertAllocation(ctx context.Context, sessionID int64, category string, amount core.Money) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budget_allocations (session_id, category, amount_cents) VALUES (?, ?, ?)
		 ON CONFLICT (session_id, category) DO UPDATE SET amount_cents = excluded.amount_cents`,
		sessionID, category, amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert allocation %q: %w", category, err)
	}
	return nil
}

// DeleteAllocationsExcept removes every allocation of the session whose
// category is not in keep. An empty keep clears the session.
func (q *Queries) DeleteAllocationsExcept(ctx context.Context, sessionID int64, keep []string) (int64, error) {
	query := `DELETE FROM budget_allocations WHERE session_id = ?`
	args := []any{sessionID}
	if len(keep) > 0 {
		query += ` AND category NOT IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		for _, k := range keep {
			args = append(args, k)
		}
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale allocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale allocations: %w", err)
	}
	return n, nil
}
