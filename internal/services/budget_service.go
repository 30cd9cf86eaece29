package services

import (
	"context"
	"time"

	"spry/internal/amqp"
	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/storage"
)

// Budget is a session together with its allocations.
type Budget struct {
	Session     core.BudgetSession
	Allocations []core.Allocation
}

// BudgetSubmission is the desired state of the active budget. A nil
// TotalIncome keeps the current income.
type BudgetSubmission struct {
	TotalIncome *core.Money
	Allocations []core.Allocation
}

// BudgetService owns "the current month's budget": the single active
// session of a user and its allocations.
type BudgetService struct {
	repo       *storage.SQLiteRepository
	ledger     *AllocationLedger
	reconciler *GoalReconciler
	notifier   *Notifier
	now        func() time.Time
	logger     *log.Logger
}

func NewBudgetService(repo *storage.SQLiteRepository, ledger *AllocationLedger, reconciler *GoalReconciler, notifier *Notifier) *BudgetService {
	return &BudgetService{
		repo:       repo,
		ledger:     ledger,
		reconciler: reconciler,
		notifier:   notifier,
		now:        time.Now,
		logger:     log.Default().WithComponent(log.ComponentBudget),
	}
}

// GetActiveSession returns the user's active session or nil.
func (s *BudgetService) GetActiveSession(ctx context.Context, userID int64) (*core.BudgetSession, error) {
	return s.repo.Queries().GetActiveSession(ctx, userID)
}

// GetOrCreateActiveSession is idempotent: repeated calls return the same session.
func (s *BudgetService) GetOrCreateActiveSession(ctx context.Context, userID int64) (*core.BudgetSession, error) {
	var session *core.BudgetSession
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		session, err = s.getOrCreateTx(ctx, q, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// getOrCreateTx relies on the IMMEDIATE transaction holding the write lock,
// so no other request can create a session between the read and the insert.
func (s *BudgetService) getOrCreateTx(ctx context.Context, q *storage.Queries, userID int64) (*core.BudgetSession, error) {
	session, err := q.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session, err = q.CreateSession(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Budget session created",
		log.FieldUserID, userID,
		log.FieldSessionID, session.ID)
	return session, nil
}

// GetBudget returns the active session with its allocations.
func (s *BudgetService) GetBudget(ctx context.Context, userID int64) (*Budget, error) {
	session, err := s.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, core.NewNotFoundError("active budget session", 0)
	}
	allocations, err := s.ledger.GetAllocations(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &Budget{Session: *session, Allocations: allocations}, nil
}

// SubmitBudget resolves or creates the active session, sets its income,
// replaces the full allocation set and recomputes unallocated income, all in
// one transaction.
func (s *BudgetService) SubmitBudget(ctx context.Context, userID int64, sub BudgetSubmission) (*Budget, error) {
	if sub.TotalIncome != nil && sub.TotalIncome.Cents < 0 {
		return nil, core.NewValidationError("monthly_income", "monthly_income cannot be negative")
	}
	items, err := normalizeAllocations(sub.Allocations)
	if err != nil {
		return nil, err
	}

	var budget Budget
	err = s.repo.WithTx(ctx, func(q *storage.Queries) error {
		session, err := s.getOrCreateTx(ctx, q, userID)
		if err != nil {
			return err
		}

		income := session.TotalIncome
		if sub.TotalIncome != nil {
			income = *sub.TotalIncome
		}

		allocations, err := s.ledger.UpsertAllocations(ctx, q, session.ID, items)
		if err != nil {
			return err
		}

		unallocated := core.Unallocated(income, allocations)
		if err := q.UpdateSessionTotals(ctx, session.ID, income, unallocated); err != nil {
			return err
		}

		session.TotalIncome = income
		session.UnallocatedIncome = unallocated
		budget = Budget{Session: *session, Allocations: allocations}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Budget submitted",
		log.FieldUserID, userID,
		log.FieldSessionID, budget.Session.ID,
		"income_cents", budget.Session.TotalIncome.Cents,
		"unallocated_cents", budget.Session.UnallocatedIncome.Cents,
		"allocations", len(budget.Allocations))
	s.notifier.Changed(ctx, amqp.EventBudgetSubmitted, userID, budget.Session.ID)
	return &budget, nil
}

// DeleteSession removes the active session. Its allocations and entries
// cascade, and goals those entries fed are reconciled in the same
// transaction.
func (s *BudgetService) DeleteSession(ctx context.Context, userID int64) error {
	var sessionID int64
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		session, err := q.GetActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return core.NewNotFoundError("active budget session", 0)
		}
		sessionID = session.ID

		goalIDs, err := q.SessionGoalIDs(ctx, session.ID)
		if err != nil {
			return err
		}
		if err := q.DeleteSession(ctx, session.ID); err != nil {
			return err
		}

		affected := make([]*int64, len(goalIDs))
		for i := range goalIDs {
			affected[i] = &goalIDs[i]
		}
		return s.reconciler.reconcileAffected(ctx, q, userID, affected...)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Budget session deleted",
		log.FieldUserID, userID,
		log.FieldSessionID, sessionID)
	s.notifier.Changed(ctx, amqp.EventBudgetDeleted, userID, sessionID)
	return nil
}

// RotateSession closes the active session, if any, and opens a new one with
// zero income. Entries of the old session keep pointing at it.
func (s *BudgetService) RotateSession(ctx context.Context, userID int64) (*Budget, error) {
	var session *core.BudgetSession
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := q.DeactivateSession(ctx, current.ID); err != nil {
				return err
			}
		}
		session, err = q.CreateSession(ctx, userID, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Budget session rotated",
		log.FieldUserID, userID,
		log.FieldSessionID, session.ID)
	s.notifier.Changed(ctx, amqp.EventBudgetRotated, userID, session.ID)
	return &Budget{Session: *session, Allocations: []core.Allocation{}}, nil
}
