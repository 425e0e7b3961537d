package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
)

// maxLogMinutes caps a single log at one day.
const maxLogMinutes = 24 * 60

// Journal manages time logs. Every mutation writes the log and applies the
// matching ledger delta in one transaction.
type Journal struct {
	db     *sqlx.DB
	logs   repository.TimeLogRepository
	ledger *Ledger
}

func NewJournal(db *sqlx.DB, logs repository.TimeLogRepository, ledger *Ledger) *Journal {
	return &Journal{
		db:     db,
		logs:   logs,
		ledger: ledger,
	}
}

// RoundMinutes converts a user-supplied, possibly fractional number of
// minutes to the stored whole-minute value.
func RoundMinutes(raw float64) (int, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, invalid("minutes", "must be a number")
	}
	if raw <= 0 {
		return 0, invalid("minutes", "must be greater than zero")
	}

	rounded := math.Round(raw)
	if rounded < 1 {
		return 0, invalid("minutes", "must be at least one minute once rounded")
	}
	if rounded > maxLogMinutes {
		return 0, invalid("minutes", "is too large")
	}

	return int(rounded), nil
}

func validateLoggedDate(date time.Time) error {
	if date.IsZero() {
		return invalid("logged_date", "is required")
	}
	return nil
}

// CreateEntry logs rawMinutes against a goal and adds them to its total.
func (j *Journal) CreateEntry(ctx context.Context, goalID, userID string, loggedDate time.Time, rawMinutes float64) (*model.TimeLog, *LedgerUpdate, error) {
	minutes, err := RoundMinutes(rawMinutes)
	if err != nil {
		return nil, nil, err
	}
	err = validateLoggedDate(loggedDate)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	log := &model.TimeLog{
		ID:         uuid.New().String(),
		GoalID:     goalID,
		UserID:     userID,
		LoggedDate: model.CalendarDate(loggedDate),
		Minutes:    minutes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var update *LedgerUpdate
	err = repository.InTx(ctx, j.db, func(tx *sqlx.Tx) error {
		// The ledger locks the goal first and reports a vanished goal as
		// not found instead of a foreign key failure on insert.
		var err error
		update, err = j.ledger.applyDelta(ctx, tx, goalID, minutes)
		if err != nil {
			return err
		}

		return j.logs.WithTx(tx).Create(ctx, log)
	})
	if err != nil {
		return nil, nil, err
	}

	j.ledger.observe("create", minutes, update)
	return log, update, nil
}

// UpdateEntry changes a log's date and minutes and applies the difference
// to the goal. The old value is re-read under lock inside the transaction
// so concurrent edits of the same log cannot apply a stale difference.
func (j *Journal) UpdateEntry(ctx context.Context, logID string, loggedDate time.Time, rawMinutes float64) (*model.TimeLog, *LedgerUpdate, error) {
	minutes, err := RoundMinutes(rawMinutes)
	if err != nil {
		return nil, nil, err
	}
	err = validateLoggedDate(loggedDate)
	if err != nil {
		return nil, nil, err
	}

	var (
		log    *model.TimeLog
		update *LedgerUpdate
		delta  int
	)
	err = repository.InTx(ctx, j.db, func(tx *sqlx.Tx) error {
		logs := j.logs.WithTx(tx)

		var err error
		log, err = logs.LockByID(ctx, logID)
		if err != nil {
			return err
		}

		delta = minutes - log.Minutes
		log.LoggedDate = model.CalendarDate(loggedDate)
		log.Minutes = minutes
		log.UpdatedAt = time.Now().UTC()

		err = logs.Update(ctx, log)
		if err != nil {
			return err
		}

		update, err = j.ledger.applyDelta(ctx, tx, log.GoalID, delta)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	j.ledger.observe("update", delta, update)
	return log, update, nil
}

// DeleteEntry removes a log and subtracts its minutes from the goal. A log
// that is already gone yields ErrTimeLogNotFound and changes nothing.
func (j *Journal) DeleteEntry(ctx context.Context, logID string) (*LedgerUpdate, error) {
	var (
		update *LedgerUpdate
		delta  int
	)
	err := repository.InTx(ctx, j.db, func(tx *sqlx.Tx) error {
		logs := j.logs.WithTx(tx)

		log, err := logs.LockByID(ctx, logID)
		if err != nil {
			return err
		}

		err = logs.Delete(ctx, logID)
		if err != nil {
			return err
		}

		delta = -log.Minutes
		update, err = j.ledger.applyDelta(ctx, tx, log.GoalID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	j.ledger.observe("delete", delta, update)
	return update, nil
}
