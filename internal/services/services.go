package services

import (
	"errors"
	"fmt"
	"time"

	"spry/internal/storage"
)

// Options tunes the service set.
type Options struct {
	Publisher        EventPublisher
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

// Services wires the budgeting core around one repository.
type Services struct {
	Entries    *EntryService
	Goals      *GoalService
	Budget     *BudgetService
	Ledger     *AllocationLedger
	Reconciler *GoalReconciler
	Metrics    *MetricsService

	repo   *storage.SQLiteRepository
	closer interface{ Close() error }
}

func New(repo *storage.SQLiteRepository, opts Options) *Services {
	if opts.SummaryCacheSize <= 0 {
		opts.SummaryCacheSize = 1000
	}
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = 30 * time.Second
	}

	metrics := NewMetricsService(repo, opts.SummaryCacheSize, opts.SummaryCacheTTL)
	notifier := NewNotifier(opts.Publisher, metrics)
	reconciler := NewGoalReconciler(repo)
	ledger := NewAllocationLedger(repo)
	budget := NewBudgetService(repo, ledger, reconciler, notifier)

	s := &Services{
		Entries:    NewEntryService(repo, budget, reconciler, notifier),
		Goals:      NewGoalService(repo, reconciler, notifier),
		Budget:     budget,
		Ledger:     ledger,
		Reconciler: reconciler,
		Metrics:    metrics,
		repo:       repo,
	}
	if c, ok := opts.Publisher.(interface{ Close() error }); ok {
		s.closer = c
	}
	return s
}

// setClock pins every service to the given clock.
func (s *Services) setClock(now func() time.Time) {
	s.Entries.now = now
	s.Goals.now = now
	s.Budget.now = now
	s.Reconciler.now = now
}

// Close closes the publisher and the repository.
func (s *Services) Close() error {
	var errs []error

	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
