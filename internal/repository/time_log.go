package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/model"
)

var (
	ErrTimeLogNotFound = fmt.Errorf("time log %w", ErrNotFound)
)

type TimeLogRepository interface {
	WithTx(tx *sqlx.Tx) TimeLogRepository
	Create(ctx context.Context, log *model.TimeLog) error
	ByID(ctx context.Context, logID string) (*model.TimeLog, error)
	LockByID(ctx context.Context, logID string) (*model.TimeLog, error)
	ByGoal(ctx context.Context, goalID string) ([]*model.TimeLog, error)
	LoggedDates(ctx context.Context, goalID string) ([]time.Time, error)
	SumMinutes(ctx context.Context, goalID string) (int, error)
	Contributions(ctx context.Context, teamID string) ([]model.Contribution, error)
	Update(ctx context.Context, log *model.TimeLog) error
	Delete(ctx context.Context, logID string) error
	DeleteByGoal(ctx context.Context, goalID string) error
}

type timeLogRepository struct {
	db DBTX
}

func NewTimeLogRepository(db DBTX) TimeLogRepository {
	return &timeLogRepository{db: db}
}

func (r *timeLogRepository) WithTx(tx *sqlx.Tx) TimeLogRepository {
	return &timeLogRepository{db: tx}
}

func (r *timeLogRepository) Create(ctx context.Context, log *model.TimeLog) error {
	query := `INSERT INTO time_logs (id, goal_id, user_id, logged_date, minutes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.GoalID,
		log.UserID,
		log.LoggedDate,
		log.Minutes,
		log.CreatedAt,
		log.UpdatedAt,
	)

	return err
}

func (r *timeLogRepository) ByID(ctx context.Context, logID string) (*model.TimeLog, error) {
	return r.byID(ctx, `SELECT * FROM time_logs WHERE id = $1`, logID)
}

// LockByID reads a time log and holds its row until the surrounding transaction ends.
func (r *timeLogRepository) LockByID(ctx context.Context, logID string) (*model.TimeLog, error) {
	return r.byID(ctx, `SELECT * FROM time_logs WHERE id = $1`+forUpdate(r.db), logID)
}

func (r *timeLogRepository) byID(ctx context.Context, query, logID string) (*model.TimeLog, error) {
	log := &model.TimeLog{}

	err := r.db.GetContext(ctx, log, query, logID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTimeLogNotFound
	}
	if err != nil {
		return nil, err
	}

	return log, nil
}

// ByGoal lists a goal's logs, newest day first and larger logs first within a day.
func (r *timeLogRepository) ByGoal(ctx context.Context, goalID string) ([]*model.TimeLog, error) {
	var logs []*model.TimeLog
	query := `SELECT * FROM time_logs WHERE goal_id = $1 ORDER BY logged_date DESC, minutes DESC, created_at DESC`

	err := r.db.SelectContext(ctx, &logs, query, goalID)
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// LoggedDates returns the distinct calendar days with at least one log.
func (r *timeLogRepository) LoggedDates(ctx context.Context, goalID string) ([]time.Time, error) {
	var dates []time.Time
	query := `SELECT DISTINCT logged_date FROM time_logs WHERE goal_id = $1 ORDER BY logged_date DESC`

	err := r.db.SelectContext(ctx, &dates, query, goalID)
	if err != nil {
		return nil, err
	}

	return dates, nil
}

func (r *timeLogRepository) SumMinutes(ctx context.Context, goalID string) (int, error) {
	var sum int
	query := `SELECT COALESCE(SUM(minutes), 0) FROM time_logs WHERE goal_id = $1`
	err := r.db.GetContext(ctx, &sum, query, goalID)
	return sum, err
}

// Contributions totals the minutes each user logged against a team's goals,
// top contributors first.
func (r *timeLogRepository) Contributions(ctx context.Context, teamID string) ([]model.Contribution, error) {
	var contributions []model.Contribution
	query := `SELECT t.user_id, SUM(t.minutes) AS minutes
	          FROM time_logs t
	          JOIN goals g ON g.id = t.goal_id
	          WHERE g.team_id = $1
	          GROUP BY t.user_id
	          ORDER BY minutes DESC, t.user_id ASC`

	err := r.db.SelectContext(ctx, &contributions, query, teamID)
	if err != nil {
		return nil, err
	}

	return contributions, nil
}

func (r *timeLogRepository) Update(ctx context.Context, log *model.TimeLog) error {
	query := `UPDATE time_logs
	          SET logged_date = $1, minutes = $2, updated_at = $3
	          WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		log.LoggedDate,
		log.Minutes,
		log.UpdatedAt,
		log.ID,
	)
	if err != nil {
		return err
	}

	return affected(result, ErrTimeLogNotFound)
}

func (r *timeLogRepository) Delete(ctx context.Context, logID string) error {
	query := `DELETE FROM time_logs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, logID)
	if err != nil {
		return err
	}

	return affected(result, ErrTimeLogNotFound)
}

// DeleteByGoal removes every log of a goal. Used when deleting the goal so
// the cascade does not depend on the driver enforcing foreign keys.
func (r *timeLogRepository) DeleteByGoal(ctx context.Context, goalID string) error {
	query := `DELETE FROM time_logs WHERE goal_id = $1`
	_, err := r.db.ExecContext(ctx, query, goalID)
	return err
}
