package services

import (
	"context"
	"strings"
	"time"

	"spry/internal/amqp"
	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/storage"
)

// GoalPatch is the body of a goal update. AllocatedAmount and Completed are
// derived from entries; sending them only asks for a reconciliation.
type GoalPatch struct {
	Note            *string
	GoalAmount      *core.Money
	AllocatedAmount *core.Money
	Completed       *bool
}

func (p GoalPatch) Empty() bool {
	return p.Note == nil && p.GoalAmount == nil && p.AllocatedAmount == nil && p.Completed == nil
}

type GoalService struct {
	repo       *storage.SQLiteRepository
	reconciler *GoalReconciler
	notifier   *Notifier
	now        func() time.Time
	logger     *log.Logger
}

func NewGoalService(repo *storage.SQLiteRepository, reconciler *GoalReconciler, notifier *Notifier) *GoalService {
	return &GoalService{
		repo:       repo,
		reconciler: reconciler,
		notifier:   notifier,
		now:        time.Now,
		logger:     log.Default().WithComponent(log.ComponentGoals),
	}
}

// ListGoals returns goals newest first. Progress is reconciled on every
// entry write, so the stored values are current.
func (s *GoalService) ListGoals(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	return s.repo.Queries().ListGoals(ctx, userID)
}

func (s *GoalService) GetGoal(ctx context.Context, userID, goalID int64) (*core.SavingsGoal, error) {
	return s.repo.Queries().GetGoal(ctx, userID, goalID)
}

func (s *GoalService) CreateGoal(ctx context.Context, userID int64, note string, goalAmount core.Money) (*core.SavingsGoal, error) {
	goal := core.SavingsGoal{
		UserID:     userID,
		Note:       strings.TrimSpace(note),
		GoalAmount: goalAmount,
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	var created *core.SavingsGoal
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		goal.CreatedAt = s.now()
		inserted, err := q.InsertGoal(ctx, goal)
		if err != nil {
			return err
		}
		created, err = s.reconciler.reconcileTx(ctx, q, userID, inserted.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Goal created",
		log.FieldUserID, userID,
		log.FieldGoalID, created.ID,
		log.FieldAmount, created.GoalAmount.String())
	s.notifier.Changed(ctx, amqp.EventGoalCreated, userID, created.ID)
	return created, nil
}

// UpdateGoal changes note and target, then reconciles so the derived fields
// reflect the new target.
func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID int64, patch GoalPatch) (*core.SavingsGoal, error) {
	if patch.Empty() {
		return nil, core.NewValidationError("body", "nothing to update")
	}
	if patch.AllocatedAmount != nil && patch.AllocatedAmount.Cents < 0 {
		return nil, core.NewValidationError("allocated_amount", "allocated_amount cannot be negative")
	}

	var updated *core.SavingsGoal
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		goal, err := q.GetGoal(ctx, userID, goalID)
		if err != nil {
			return err
		}

		if patch.Note != nil || patch.GoalAmount != nil {
			if patch.Note != nil {
				goal.Note = strings.TrimSpace(*patch.Note)
			}
			if patch.GoalAmount != nil {
				goal.GoalAmount = *patch.GoalAmount
			}
			if err := goal.Validate(); err != nil {
				return err
			}
			if err := q.UpdateGoalDetails(ctx, *goal); err != nil {
				return err
			}
		}

		updated, err = s.reconciler.reconcileTx(ctx, q, userID, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if patch.AllocatedAmount != nil && *patch.AllocatedAmount != updated.AllocatedAmount {
		s.logger.InfoContext(ctx, "Ignoring client allocated_amount in favour of linked entries",
			log.FieldUserID, userID,
			log.FieldGoalID, goalID,
			"requested", patch.AllocatedAmount.String(),
			"reconciled", updated.AllocatedAmount.String())
	}
	s.notifier.Changed(ctx, amqp.EventGoalUpdated, userID, goalID)
	return updated, nil
}

// DeleteGoal detaches linked entries and removes the goal.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	var detached int64
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetGoal(ctx, userID, goalID); err != nil {
			return err
		}
		n, err := q.DetachGoalEntries(ctx, userID, goalID)
		if err != nil {
			return err
		}
		detached = n
		_, err = q.DeleteGoal(ctx, userID, goalID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Goal deleted",
		log.FieldUserID, userID,
		log.FieldGoalID, goalID,
		"detached_entries", detached)
	s.notifier.Changed(ctx, amqp.EventGoalDeleted, userID, goalID)
	return nil
}
