package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spry/internal/core"
	"spry/internal/log"
	"spry/internal/storage"
)

// GoalReconciler recomputes a goal's derived progress from its linked saving
// entries. It always re-sums; there is no running counter to drift.
type GoalReconciler struct {
	repo   *storage.SQLiteRepository
	now    func() time.Time
	logger *log.Logger
}

func NewGoalReconciler(repo *storage.SQLiteRepository) *GoalReconciler {
	return &GoalReconciler{
		repo:   repo,
		now:    time.Now,
		logger: log.Default().WithComponent(log.ComponentReconciler),
	}
}

// Reconcile recomputes one goal in its own transaction. It returns nil, nil
// when the goal no longer exists.
func (r *GoalReconciler) Reconcile(ctx context.Context, userID, goalID int64) (*core.SavingsGoal, error) {
	var goal *core.SavingsGoal
	err := r.repo.WithTx(ctx, func(q *storage.Queries) error {
		g, err := r.reconcileTx(ctx, q, userID, goalID)
		goal = g
		return err
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// ReconcileAll recomputes every goal of the user in one transaction.
func (r *GoalReconciler) ReconcileAll(ctx context.Context, userID int64) ([]core.SavingsGoal, error) {
	var goals []core.SavingsGoal
	err := r.repo.WithTx(ctx, func(q *storage.Queries) error {
		ids, err := q.ListGoalIDs(ctx, userID)
		if err != nil {
			return fmt.Errorf("list goal ids: %w", err)
		}
		for _, id := range ids {
			g, err := r.reconcileTx(ctx, q, userID, id)
			if err != nil {
				return err
			}
			if g != nil {
				goals = append(goals, *g)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *GoalReconciler) reconcileTx(ctx context.Context, q *storage.Queries, userID, goalID int64) (*core.SavingsGoal, error) {
	goal, err := q.GetGoal(ctx, userID, goalID)
	if errors.Is(err, core.ErrNotFound) {
		r.logger.WarnContext(ctx, "Goal referenced by entry no longer exists",
			log.FieldErrorType, log.ErrorTypeConsistency,
			log.FieldUserID, userID,
			log.FieldGoalID, goalID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sum, err := q.SumGoalSavings(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if goal.ApplyProgress(sum, r.now()) {
		if err := q.UpdateGoalProgress(ctx, *goal); err != nil {
			return nil, err
		}
		r.logger.DebugContext(ctx, "Goal reconciled",
			log.FieldUserID, userID,
			log.FieldGoalID, goalID,
			"allocated_cents", goal.AllocatedAmount.Cents,
			"completed", goal.Completed)
	}
	return goal, nil
}

// reconcileAffected reconciles each distinct goal once.
func (r *GoalReconciler) reconcileAffected(ctx context.Context, q *storage.Queries, userID int64, goalIDs ...*int64) error {
	seen := make(map[int64]bool, len(goalIDs))
	for _, id := range goalIDs {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		if _, err := r.reconcileTx(ctx, q, userID, *id); err != nil {
			return fmt.Errorf("reconcile goal %d: %w", *id, err)
		}
	}
	return nil
}
