package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spry/internal/core"
)

const entryColumns = `id, user_id, session_id, type, amount_cents, category, title, note, goal_id, created_at`

func scanEntry(row rowScanner) (*core.Entry, error) {
	var (
		e         core.Entry
		typ       string
		goalID    sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.SessionID, &typ, &e.Amount.Cents, &e.Category,
		&e.Title, &e.Note, &goalID, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.Type = core.EntryType(typ)
	e.CreatedAt = t
	if goalID.Valid {
		id := goalID.Int64
		e.GoalID = &id
	}
	return &e, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (q *Queries) InsertEntry(ctx context.Context, e core.Entry) (*core.Entry, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO entries (user_id, session_id, type, amount_cents, category, title, note, goal_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.SessionID, string(e.Type), e.Amount.Cents, e.Category, e.Title, e.Note,
		nullableID(e.GoalID), formatTime(e.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return q.GetEntry(ctx, e.UserID, id)
}

func (q *Queries) GetEntry(ctx context.Context, userID, entryID int64) (*core.Entry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND id = ?`, userID, entryID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("entry", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the user's entries newest first. A non-nil sessionID
// restricts the result to that session.
func (q *Queries) ListEntries(ctx context.Context, userID int64, sessionID *int64) ([]core.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = ?`
	args := []any{userID}
	if sessionID != nil {
		query += ` AND session_id = ?`
		args = append(args, *sessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry writes every mutable column of e.
func (q *Queries) UpdateEntry(ctx context.Context, e core.Entry) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE entries SET type = ?, amount_cents = ?, category = ?, title = ?, note = ?, goal_id = ?
		 WHERE id = ? AND user_id = ?`,
		string(e.Type), e.Amount.Cents, e.Category, e.Title, e.Note, nullableID(e.GoalID), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

func (q *Queries) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	if _, err := q.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = ? AND id = ?`, userID, entryID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// SessionGoalIDs lists the distinct goals referenced by entries of a session.
func (q *Queries) SessionGoalIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	ids, err := q.int64Column(ctx,
		`SELECT DISTINCT goal_id FROM entries WHERE session_id = ? AND goal_id IS NOT NULL ORDER BY goal_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session goal ids: %w", err)
	}
	return ids, nil
}

// SumByCategory totals the session's entries per (type, category).
func (q *Queries) SumByCategory(ctx context.Context, userID, sessionID int64) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT type, category, SUM(amount_cents) FROM entries
		 WHERE user_id = ? AND session_id = ?
		 GROUP BY type, category ORDER BY category`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var (
			c   core.CategoryAmount
			typ string
		)
		if err := rows.Scan(&typ, &c.Category, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		c.Type = core.EntryType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	return out, nil
}

// TotalsByType returns the expense and saving totals of a session.
func (q *Queries) TotalsByType(ctx context.Context, userID, sessionID int64) (expense, saving core.Money, err error) {
	err = q.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'saving' THEN amount_cents END), 0)
		 FROM entries WHERE user_id = ? AND session_id = ?`, userID, sessionID).
		Scan(&expense.Cents, &saving.Cents)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("totals by type: %w", err)
	}
	return expense, saving, nil
}
