package services

import (
	"context"

	"spry/internal/core"
	"spry/internal/storage"
)

// AllocationLedger maps planned amounts onto categories of a session. It has
// no user-facing mutation of its own; BudgetService drives it.
type AllocationLedger struct {
	repo *storage.SQLiteRepository
}

func NewAllocationLedger(repo *storage.SQLiteRepository) *AllocationLedger {
	return &AllocationLedger{repo: repo}
}

func (l *AllocationLedger) GetAllocations(ctx context.Context, sessionID int64) ([]core.Allocation, error) {
	return l.repo.Queries().ListAllocations(ctx, sessionID)
}

// UpsertAllocations makes the session's allocations equal to items: each
// item is upserted by category, zero amounts are kept, and categories not
// in items are deleted. items must already be deduplicated.
func (l *AllocationLedger) UpsertAllocations(ctx context.Context, q *storage.Queries, sessionID int64, items []core.Allocation) ([]core.Allocation, error) {
	keep := make([]string, 0, len(items))
	for _, it := range items {
		if err := q.UpsertAllocation(ctx, sessionID, it.Category, it.Amount); err != nil {
			return nil, err
		}
		keep = append(keep, it.Category)
	}
	if _, err := q.DeleteAllocationsExcept(ctx, sessionID, keep); err != nil {
		return nil, err
	}
	return q.ListAllocations(ctx, sessionID)
}

// normalizeAllocations validates keys and amounts and collapses duplicate
// categories, keeping the last amount at the position of the first.
func normalizeAllocations(items []core.Allocation) ([]core.Allocation, error) {
	out := make([]core.Allocation, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		category := core.NormalizeCategory(it.Category)
		if category == "" {
			return nil, core.NewValidationError("allocations", "allocation category is required")
		}
		if !core.IsKnownCategory(category) {
			return nil, core.NewValidationError("allocations", "unknown allocation category '"+category+"'")
		}
		if it.Amount.Cents < 0 {
			return nil, core.NewValidationError("allocations", "allocation amount cannot be negative")
		}
		if i, ok := index[category]; ok {
			out[i].Amount = it.Amount
			continue
		}
		index[category] = len(out)
		out = append(out, core.Allocation{Category: category, Amount: it.Amount})
	}
	return out, nil
}
