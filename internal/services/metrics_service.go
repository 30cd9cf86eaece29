package services

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"spry/internal/cache"
	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/storage"
)

// MetricsService derives dashboard figures from current state. It stores
// nothing; summaries are cached per user until the next write.
type MetricsService struct {
	repo      *storage.SQLiteRepository
	summaries *cache.LRUCache[core.Summary]
	logger    *log.Logger

	// generations counts invalidations per user. A summary is only cached
	// when no write landed while it was being computed.
	mu          sync.Mutex
	generations map[int64]uint64

	afterRead func()
}

var _ Invalidator = (*MetricsService)(nil)

func NewMetricsService(repo *storage.SQLiteRepository, cacheSize int, cacheTTL time.Duration) *MetricsService {
	return &MetricsService{
		repo:      repo,
		summaries:   cache.NewLRUCache[core.Summary](cacheSize, cacheTTL),
		logger:      log.Default().WithComponent(log.ComponentMetrics),
		generations: make(map[int64]uint64),
	}
}

// Cache exposes the summary cache for periodic cleanup.
func (s *MetricsService) Cache() cache.Cleaner {
	return s.summaries
}

func (s *MetricsService) Invalidate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	s.summaries.Delete(summaryKey(userID))
}

func (s *MetricsService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// store caches sum unless userID was invalidated after gen was taken.
func (s *MetricsService) store(userID int64, gen uint64, sum core.Summary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return false
	}
	s.summaries.Set(summaryKey(userID), sum)
	return true
}

func summaryKey(userID int64) string {
	return "summary:" + strconv.FormatInt(userID, 10)
}

// Summary totals the active session. Without an active session every total
// is zero; achieved goals are counted over all time.
func (s *MetricsService) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	if cached, ok := s.summaries.Get(summaryKey(userID)); ok {
		return cached, nil
	}
	gen := s.generation(userID)

	q := s.repo.Queries()
	var sum core.Summary

	session, err := q.GetActiveSession(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	if session != nil {
		expense, saving, err := q.TotalsByType(ctx, userID, session.ID)
		if err != nil {
			return core.Summary{}, err
		}
		sum.TotalIncome = session.TotalIncome
		sum.TotalExpense = expense
		sum.TotalSavings = saving
	}
	sum.Remaining = sum.TotalIncome.Sub(sum.TotalExpense)

	achieved, err := q.CountCompletedGoals(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	sum.AchievedGoalCount = achieved

	if s.afterRead != nil {
		s.afterRead()
	}
	if !s.store(userID, gen, sum) {
		s.logger.DebugContext(ctx, "Summary changed while computing, not cached", log.FieldUserID, userID)
	}
	return sum, nil
}

// CategoryBreakdown joins entry totals by category with the session's
// allocations. Categories present on either side are included.
func (s *MetricsService) CategoryBreakdown(ctx context.Context, userID, sessionID int64) ([]core.CategoryBreakdown, error) {
	q := s.repo.Queries()
	if _, err := q.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	spent, err := q.SumByCategory(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	allocations, err := q.ListAllocations(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*core.CategoryBreakdown)
	row := func(category string, typ core.EntryType) *core.CategoryBreakdown {
		if r, ok := rows[category]; ok {
			return r
		}
		if typ == "" {
			typ, _ = core.TypeOfCategory(category)
		}
		r := &core.CategoryBreakdown{Category: category, Type: typ}
		rows[category] = r
		return r
	}
	for _, c := range spent {
		r := row(c.Category, c.Type)
		r.Spent = r.Spent.Add(c.Amount)
	}
	for _, a := range allocations {
		row(a.Category, "").Allocated = a.Amount
	}

	out := make([]core.CategoryBreakdown, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// ActiveBreakdown is CategoryBreakdown for the active session.
func (s *MetricsService) ActiveBreakdown(ctx context.Context, userID int64) ([]core.CategoryBreakdown, error) {
	session, err := s.repo.Queries().GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, core.NewNotFoundError("active budget session", 0)
	}
	return s.CategoryBreakdown(ctx, userID, session.ID)
}
