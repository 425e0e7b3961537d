package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/templui/goaltrack/internal/metrics"
	"github.com/templui/goaltrack/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Drifted  int
	Repaired int
	Drifts   []repository.GoalDrift
}

// Reconciler repairs goals whose accumulated total no longer matches their
// time logs. It runs out of band; the regular write path never depends on it.
type Reconciler struct {
	goals       repository.GoalRepository
	ledger      *Ledger
	concurrency int
}

func NewReconciler(goals repository.GoalRepository, ledger *Ledger, concurrency int) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		goals:       goals,
		ledger:      ledger,
		concurrency: concurrency,
	}
}

// Scan lists drifted goals without changing them.
func (r *Reconciler) Scan(ctx context.Context) ([]repository.GoalDrift, error) {
	drifts, err := r.goals.Drifted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find drifted goals: %w", err)
	}
	return drifts, nil
}

// Run resyncs every drifted goal through the ledger.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	drifts, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		Drifted: len(drifts),
		Drifts:  drifts,
	}
	if len(drifts) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, drift := range drifts {
		g.Go(func() error {
			update, err := r.ledger.Resync(gctx, drift.GoalID)
			if errors.Is(err, repository.ErrGoalNotFound) {
				// Deleted since the scan.
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to resync goal %s: %w", drift.GoalID, err)
			}

			slog.Warn("repaired goal drift",
				"goal_id", drift.GoalID,
				"stored_minutes", drift.AccumulatedMinutes,
				"logged_minutes", drift.LoggedMinutes,
				"accumulated_minutes", update.Goal.AccumulatedMinutes,
				"completed", update.Goal.Completed,
			)
			metrics.ReconcileRepairs.Inc()

			mu.Lock()
			report.Repaired++
			mu.Unlock()
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return report, err
	}

	return report, nil
}
