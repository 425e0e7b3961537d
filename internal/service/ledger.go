package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/metrics"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
)

// LedgerUpdate is the state of a goal after a committed adjustment together
// with its completion flag before it.
type LedgerUpdate struct {
	Goal         *model.Goal
	WasCompleted bool
}

// JustCompleted reports a false -> true completion transition.
func (u *LedgerUpdate) JustCompleted() bool {
	return !u.WasCompleted && u.Goal.Completed
}

// Reopened reports a true -> false completion transition.
func (u *LedgerUpdate) Reopened() bool {
	return u.WasCompleted && !u.Goal.Completed
}

// Ledger is the only writer of a goal's accumulated_minutes and completed
// columns.
type Ledger struct {
	db    *sqlx.DB
	goals repository.GoalRepository
}

func NewLedger(db *sqlx.DB, goals repository.GoalRepository) *Ledger {
	return &Ledger{
		db:    db,
		goals: goals,
	}
}

// ApplyDelta adds a signed number of minutes to a goal in its own
// transaction and returns the refreshed goal.
func (l *Ledger) ApplyDelta(ctx context.Context, goalID string, delta int) (*LedgerUpdate, error) {
	var update *LedgerUpdate
	err := repository.InTx(ctx, l.db, func(tx *sqlx.Tx) error {
		var err error
		update, err = l.applyDelta(ctx, tx, goalID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.observe("direct", delta, update)
	return update, nil
}

// Reevaluate recomputes the completion flag without moving any minutes.
func (l *Ledger) Reevaluate(ctx context.Context, goalID string) (*LedgerUpdate, error) {
	return l.ApplyDelta(ctx, goalID, 0)
}

// Resync replaces accumulated_minutes with the sum of the goal's time logs.
// It is the repair path for drift and is not used by regular writes.
func (l *Ledger) Resync(ctx context.Context, goalID string) (*LedgerUpdate, error) {
	var update *LedgerUpdate
	err := repository.InTx(ctx, l.db, func(tx *sqlx.Tx) error {
		goals := l.goals.WithTx(tx)

		before, err := goals.LockByID(ctx, goalID)
		if err != nil {
			return err
		}

		err = goals.Resync(ctx, goalID)
		if err != nil {
			return err
		}

		after, err := goals.ByID(ctx, goalID)
		if err != nil {
			return err
		}

		update = &LedgerUpdate{Goal: after, WasCompleted: before.Completed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.observe("resync", 0, update)
	return update, nil
}

// applyDelta runs inside the caller's transaction. The goal row is locked
// first so the prior completion flag belongs to the same serialised write.
func (l *Ledger) applyDelta(ctx context.Context, tx *sqlx.Tx, goalID string, delta int) (*LedgerUpdate, error) {
	goals := l.goals.WithTx(tx)

	before, err := goals.LockByID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	err = goals.AddMinutes(ctx, goalID, delta)
	if err != nil {
		return nil, err
	}

	after, err := goals.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}

	return &LedgerUpdate{Goal: after, WasCompleted: before.Completed}, nil
}

// observe records a committed update.
func (l *Ledger) observe(origin string, delta int, update *LedgerUpdate) {
	metrics.LedgerDeltas.WithLabelValues(origin).Inc()
	metrics.LedgerMinutes.Add(float64(abs(delta)))

	switch {
	case update.JustCompleted():
		metrics.GoalTransitions.WithLabelValues("completed").Inc()
	case update.Reopened():
		metrics.GoalTransitions.WithLabelValues("reopened").Inc()
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
