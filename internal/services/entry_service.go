package services

import (
	"context"
	"errors"
	"time"

	"spry/internal/amqp"
	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/storage"
)

// EntryScope selects which sessions ListEntries covers.
type EntryScope int

const (
	ScopeAll EntryScope = iota
	ScopeActiveSession
)

// NewEntry is the input of CreateEntry.
type NewEntry struct {
	Type     core.EntryType
	Amount   core.Money
	Category string
	Note     string
	Title    string
	GoalID   *int64
}

// EntryPatch carries only the fields a client sent. ClearGoal detaches the
// entry from its goal.
type EntryPatch struct {
	Type      *core.EntryType
	Amount    *core.Money
	Category  *string
	Note      *string
	Title     *string
	GoalID    *int64
	ClearGoal bool
}

func (p EntryPatch) Empty() bool {
	return p.Type == nil && p.Amount == nil && p.Category == nil && p.Note == nil &&
		p.Title == nil && p.GoalID == nil && !p.ClearGoal
}

// EntryService is the Entry Store. Every write that touches a goal link
// reconciles the old and new goal inside the same transaction.
type EntryService struct {
	repo       *storage.SQLiteRepository
	budgets    *BudgetService
	reconciler *GoalReconciler
	notifier   *Notifier
	now        func() time.Time
	logger     *log.Logger
}

func NewEntryService(repo *storage.SQLiteRepository, budgets *BudgetService, reconciler *GoalReconciler, notifier *Notifier) *EntryService {
	return &EntryService{
		repo:       repo,
		budgets:    budgets,
		reconciler: reconciler,
		notifier:   notifier,
		now:        time.Now,
		logger:     log.Default().WithComponent(log.ComponentEntries),
	}
}

func (s *EntryService) ListEntries(ctx context.Context, userID int64, scope EntryScope) ([]core.Entry, error) {
	q := s.repo.Queries()
	if scope == ScopeActiveSession {
		session, err := q.GetActiveSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return []core.Entry{}, nil
		}
		return q.ListEntries(ctx, userID, &session.ID)
	}
	return q.ListEntries(ctx, userID, nil)
}

func (s *EntryService) GetEntry(ctx context.Context, userID, entryID int64) (*core.Entry, error) {
	return s.repo.Queries().GetEntry(ctx, userID, entryID)
}

// CreateEntry validates before any write, attaches the entry to the active
// session (creating it when needed) and auto-creates a goal for a
// savingsgoal entry that names none.
func (s *EntryService) CreateEntry(ctx context.Context, userID int64, in NewEntry) (*core.Entry, error) {
	entry := core.Entry{
		UserID:   userID,
		Type:     in.Type,
		Amount:   in.Amount,
		Category: core.NormalizeCategory(in.Category),
		Note:     in.Note,
		Title:    in.Title,
		GoalID:   in.GoalID,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	var (
		created     *core.Entry
		createdGoal *core.SavingsGoal
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		session, err := s.budgets.getOrCreateTx(ctx, q, userID)
		if err != nil {
			return err
		}
		entry.SessionID = session.ID
		entry.CreatedAt = s.now()

		createdGoal, err = s.resolveGoal(ctx, q, &entry, true)
		if err != nil {
			return err
		}

		created, err = q.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		return s.reconciler.reconcileAffected(ctx, q, userID, created.GoalID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Entry created",
		log.FieldUserID, userID,
		log.FieldEntryID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount.String())
	if createdGoal != nil {
		s.notifier.Changed(ctx, amqp.EventGoalCreated, userID, createdGoal.ID)
	}
	s.notifier.Changed(ctx, amqp.EventEntryCreated, userID, created.ID)
	return created, nil
}

// resolveGoal checks the goal an entry points at and, when autoCreate is set,
// creates one for a savingsgoal entry without a goal.
func (s *EntryService) resolveGoal(ctx context.Context, q *storage.Queries, e *core.Entry, autoCreate bool) (*core.SavingsGoal, error) {
	if e.Category != core.CategorySavingsGoal {
		return nil, nil
	}
	if e.GoalID != nil {
		if _, err := q.GetGoal(ctx, e.UserID, *e.GoalID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !autoCreate {
		return nil, nil
	}

	goal, err := q.InsertGoal(ctx, core.SavingsGoal{
		UserID:     e.UserID,
		Note:       e.GoalLabel(),
		GoalAmount: e.Amount,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	e.GoalID = &goal.ID
	s.logger.InfoContext(ctx, "Goal created from entry",
		log.FieldUserID, e.UserID,
		log.FieldGoalID, goal.ID)
	return goal, nil
}

// UpdateEntry applies only the supplied fields and validates the merged row.
func (s *EntryService) UpdateEntry(ctx context.Context, userID, entryID int64, patch EntryPatch) (*core.Entry, error) {
	if patch.Empty() {
		return nil, core.NewValidationError("body", "nothing to update")
	}
	if patch.GoalID != nil && patch.ClearGoal {
		return nil, core.NewValidationError("goal_id", "goal_id cannot be both set and cleared")
	}

	var (
		updated     *core.Entry
		createdGoal *core.SavingsGoal
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetEntry(ctx, userID, entryID)
		if err != nil {
			return err
		}
		oldGoal := current.GoalID

		merged, autoCreate, err := mergeEntry(*current, patch)
		if err != nil {
			return err
		}

		createdGoal, err = s.resolveGoal(ctx, q, &merged, autoCreate)
		if err != nil {
			return err
		}
		if err := q.UpdateEntry(ctx, merged); err != nil {
			return err
		}
		if err := s.reconciler.reconcileAffected(ctx, q, userID, oldGoal, merged.GoalID); err != nil {
			return err
		}

		updated, err = q.GetEntry(ctx, userID, entryID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Entry updated",
		log.FieldUserID, userID,
		log.FieldEntryID, entryID)
	if createdGoal != nil {
		s.notifier.Changed(ctx, amqp.EventGoalCreated, userID, createdGoal.ID)
	}
	s.notifier.Changed(ctx, amqp.EventEntryUpdated, userID, entryID)
	return updated, nil
}

// mergeEntry overlays patch on current and validates the result. It reports
// whether the entry moved onto savingsgoal and should get a new goal.
// Clearing the goal is only allowed together with a move off savingsgoal.
func mergeEntry(current core.Entry, patch EntryPatch) (core.Entry, bool, error) {
	merged := current
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.Category != nil {
		merged.Category = core.NormalizeCategory(*patch.Category)
	}
	if patch.Note != nil {
		merged.Note = *patch.Note
	}
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	switch {
	case patch.ClearGoal:
		merged.GoalID = nil
	case patch.GoalID != nil:
		merged.GoalID = patch.GoalID
	}

	if merged.Category == core.CategorySavingsGoal && patch.ClearGoal {
		return core.Entry{}, false, core.NewValidationError("goal_id", "savingsgoal entries require a goal")
	}
	if merged.Category != core.CategorySavingsGoal {
		if patch.GoalID != nil {
			return core.Entry{}, false, core.NewValidationError("goal_id", "goal_id requires category savingsgoal")
		}
		merged.GoalID = nil
	}
	if err := merged.Validate(); err != nil {
		return core.Entry{}, false, err
	}

	movedOnto := current.Category != core.CategorySavingsGoal && merged.Category == core.CategorySavingsGoal
	return merged, movedOnto && merged.GoalID == nil, nil
}

// DeleteEntry is idempotent: deleting a missing or foreign entry succeeds
// without side effects.
func (s *EntryService) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	deleted := false
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		current, err := q.GetEntry(ctx, userID, entryID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := q.DeleteEntry(ctx, userID, entryID); err != nil {
			return err
		}
		deleted = true
		return s.reconciler.reconcileAffected(ctx, q, userID, current.GoalID)
	})
	if err != nil {
		return err
	}

	if !deleted {
		s.logger.DebugContext(ctx, "Entry already absent",
			log.FieldUserID, userID,
			log.FieldEntryID, entryID)
		return nil
	}
	s.logger.InfoContext(ctx, "Entry deleted",
		log.FieldUserID, userID,
		log.FieldEntryID, entryID)
	s.notifier.Changed(ctx, amqp.EventEntryDeleted, userID, entryID)
	return nil
}
