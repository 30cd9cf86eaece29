package core

import (
	"strings"
	"time"
)

const (
	EntryExpense EntryType = "expense"
	EntrySaving  EntryType = "saving"
)

// CategorySavingsGoal is the saving category that links an entry to a SavingsGoal.
const CategorySavingsGoal = "savingsgoal"

const (
	maxNoteLength  = 255
	maxTitleLength = 100
)

var (
	expenseCategories = []string{"rent", "food", "utilities", "entertainment", "clothing", "other"}
	savingCategories  = []string{"emergency", "roth ira", "stocks", "401k", CategorySavingsGoal}
)

type (
	EntryType string

	Entry struct {
		ID        int64
		UserID    int64
		SessionID int64
		Type      EntryType
		Amount    Money
		Category  string
		Title     string
		Note      string
		GoalID    *int64 // only set for category savingsgoal
		CreatedAt time.Time
	}

	SavingsGoal struct {
		ID              int64
		UserID          int64
		Note            string
		GoalAmount      Money
		AllocatedAmount Money // derived from linked saving entries
		Completed       bool  // derived
		CompletedAt     *time.Time
		CreatedAt       time.Time
	}

	BudgetSession struct {
		ID                int64
		UserID            int64
		TotalIncome       Money
		UnallocatedIncome Money
		IsActive          bool
		CreatedAt         time.Time
	}

	Allocation struct {
		SessionID int64
		Category  string
		Amount    Money
	}
)

// ParseEntryType normalizes and validates an entry type.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case EntryExpense, EntrySaving:
		return t, nil
	case "":
		return "", NewValidationError("type", "type is required")
	}
	return "", NewValidationError("type", "type must be expense or saving")
}

// CategoriesFor returns the categories accepted for the given entry type.
func CategoriesFor(t EntryType) []string {
	switch t {
	case EntryExpense:
		return append([]string(nil), expenseCategories...)
	case EntrySaving:
		return append([]string(nil), savingCategories...)
	}
	return nil
}

// ValidCategory reports whether category belongs to the set matching t.
func ValidCategory(t EntryType, category string) bool {
	for _, c := range CategoriesFor(t) {
		if c == category {
			return true
		}
	}
	return false
}

// IsKnownCategory reports whether category is an expense or saving category.
func IsKnownCategory(category string) bool {
	return ValidCategory(EntryExpense, category) || ValidCategory(EntrySaving, category)
}

// TypeOfCategory returns the entry type a category belongs to.
func TypeOfCategory(category string) (EntryType, bool) {
	switch {
	case ValidCategory(EntryExpense, category):
		return EntryExpense, true
	case ValidCategory(EntrySaving, category):
		return EntrySaving, true
	}
	return "", false
}

// NormalizeCategory lowercases and trims a category key.
func NormalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (e Entry) Validate() error {
	if e.Type != EntryExpense && e.Type != EntrySaving {
		return NewValidationError("type", "type must be expense or saving")
	}
	if e.Amount.Cents <= 0 {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	if e.Category == "" {
		return NewValidationError("category", "category is required")
	}
	if !ValidCategory(e.Type, e.Category) {
		return NewValidationError("category",
			"category '"+e.Category+"' is not valid for type "+string(e.Type))
	}
	if e.GoalID != nil && e.Category != CategorySavingsGoal {
		return NewValidationError("goal_id", "goal_id requires category savingsgoal")
	}
	if len(e.Note) > maxNoteLength {
		return NewValidationError("note", "note too long (max 255 characters)")
	}
	if len(e.Title) > maxTitleLength {
		return NewValidationError("title", "title too long (max 100 characters)")
	}
	return nil
}

// LinksGoal reports whether the entry contributes to a goal's progress.
func (e Entry) LinksGoal() bool {
	return e.Type == EntrySaving && e.GoalID != nil
}

// GoalLabel is the note given to a goal created implicitly from this entry.
func (e Entry) GoalLabel() string {
	switch {
	case strings.TrimSpace(e.Note) != "":
		return strings.TrimSpace(e.Note)
	case strings.TrimSpace(e.Title) != "":
		return strings.TrimSpace(e.Title)
	}
	return "Savings goal"
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Note) == "" {
		return NewValidationError("note", "note is required")
	}
	if len(g.Note) > maxNoteLength {
		return NewValidationError("note", "note too long (max 255 characters)")
	}
	if g.GoalAmount.Cents <= 0 {
		return NewValidationError("goal_amount", "goal_amount must be greater than zero")
	}
	return nil
}

// ApplyProgress sets the derived fields from the sum of linked saving entries.
// completed_at is stamped when completion flips on, kept while it stays on,
// and cleared when it flips off. It reports whether anything changed.
func (g *SavingsGoal) ApplyProgress(sum Money, now time.Time) bool {
	completed := sum.Cents >= g.GoalAmount.Cents
	changed := g.AllocatedAmount != sum || g.Completed != completed

	g.AllocatedAmount = sum
	g.Completed = completed
	switch {
	case completed && g.CompletedAt == nil:
		t := now.UTC()
		g.CompletedAt = &t
		changed = true
	case !completed && g.CompletedAt != nil:
		g.CompletedAt = nil
		changed = true
	}
	return changed
}

// Unallocated is max(income - sum(allocations), 0).
func Unallocated(income Money, allocations []Allocation) Money {
	var total Money
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	rest := income.Sub(total)
	if rest.Cents < 0 {
		return Money{}
	}
	return rest
}
