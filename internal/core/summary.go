package core

// Summary is the dashboard aggregate for one user.
type Summary struct {
	TotalIncome       Money
	TotalExpense      Money
	TotalSavings      Money
	Remaining         Money // TotalIncome - TotalExpense, negative on overspend
	AchievedGoalCount int
}

// CategoryAmount is an entry total for one category.
type CategoryAmount struct {
	Category string
	Type     EntryType
	Amount   Money
}

// CategoryBreakdown joins what was spent in a category with what was planned.
type CategoryBreakdown struct {
	Category  string
	Type      EntryType
	Spent     Money
	Allocated Money
}

func (b CategoryBreakdown) Remaining() Money {
	return b.Allocated.Sub(b.Spent)
}
