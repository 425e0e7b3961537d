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
	ErrGoalNotFound = fmt.Errorf("goal %w", ErrNotFound)
)

// GoalDrift is a goal whose stored total disagrees with its time logs.
type GoalDrift struct {
	GoalID             string `db:"goal_id"`
	AccumulatedMinutes int    `db:"accumulated_minutes"`
	LoggedMinutes      int    `db:"logged_minutes"`
}

type GoalRepository interface {
	WithTx(tx *sqlx.Tx) GoalRepository
	Create(ctx context.Context, goal *model.Goal) error
	ByID(ctx context.Context, goalID string) (*model.Goal, error)
	LockByID(ctx context.Context, goalID string) (*model.Goal, error)
	ActiveGoals(ctx context.Context, userID string) ([]*model.Goal, error)
	VisibleGoals(ctx context.Context, userID string) ([]*model.Goal, error)
	CountCompleted(ctx context.Context, userID string) (int, error)
	TeamGoals(ctx context.Context, teamID string) ([]*model.Goal, error)
	MemberActiveGoals(ctx context.Context, teamID string) ([]*model.Goal, error)
	Update(ctx context.Context, goal *model.Goal) error
	AddMinutes(ctx context.Context, goalID string, delta int) error
	Resync(ctx context.Context, goalID string) error
	Drifted(ctx context.Context) ([]GoalDrift, error)
	Delete(ctx context.Context, goalID string) error
}

type goalRepository struct {
	db DBTX
}

func NewGoalRepository(db DBTX) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) WithTx(tx *sqlx.Tx) GoalRepository {
	return &goalRepository{db: tx}
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	query := `INSERT INTO goals (id, owner_id, team_id, title, description, start_date, end_date,
	                             days_of_week, importance, target_minutes, accumulated_minutes, completed,
	                             created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.OwnerID,
		goal.TeamID,
		goal.Title,
		goal.Description,
		goal.StartDate,
		goal.EndDate,
		goal.DaysOfWeek,
		goal.Importance,
		goal.TargetMinutes,
		goal.AccumulatedMinutes,
		goal.Completed,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(ctx context.Context, goalID string) (*model.Goal, error) {
	return r.byID(ctx, `SELECT * FROM goals WHERE id = $1`, goalID)
}

// LockByID reads a goal and holds its row until the surrounding transaction ends.
func (r *goalRepository) LockByID(ctx context.Context, goalID string) (*model.Goal, error) {
	return r.byID(ctx, `SELECT * FROM goals WHERE id = $1`+forUpdate(r.db), goalID)
}

func (r *goalRepository) byID(ctx context.Context, query, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}

	err := r.db.GetContext(ctx, goal, query, goalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// ActiveGoals returns the open goals a user owns or shares through a team,
// most important first, then by start date.
func (r *goalRepository) ActiveGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals
	          WHERE completed = FALSE
	            AND (owner_id = $1 OR team_id IN (SELECT team_id FROM team_members WHERE user_id = $1))
	          ORDER BY importance DESC, start_date ASC, created_at ASC`

	err := r.db.SelectContext(ctx, &goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// VisibleGoals returns every goal a user owns or shares through a team.
func (r *goalRepository) VisibleGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals
	          WHERE owner_id = $1 OR team_id IN (SELECT team_id FROM team_members WHERE user_id = $1)
	          ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) CountCompleted(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM goals
	          WHERE completed = TRUE
	            AND (owner_id = $1 OR team_id IN (SELECT team_id FROM team_members WHERE user_id = $1))`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// TeamGoals returns every goal shared with a team, most important first.
func (r *goalRepository) TeamGoals(ctx context.Context, teamID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals
	          WHERE team_id = $1
	          ORDER BY importance DESC, end_date ASC, created_at ASC`

	err := r.db.SelectContext(ctx, &goals, query, teamID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// MemberActiveGoals returns the open goals owned by the plain members of a
// team, grouped by owner and ordered by deadline.
func (r *goalRepository) MemberActiveGoals(ctx context.Context, teamID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT g.* FROM goals g
	          JOIN team_members m ON m.user_id = g.owner_id
	          WHERE m.team_id = $1 AND m.role = $2 AND g.completed = FALSE
	          ORDER BY g.owner_id ASC, g.end_date ASC, g.created_at ASC`

	err := r.db.SelectContext(ctx, &goals, query, teamID, model.TeamRoleMember)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// Update writes the editable goal fields. accumulated_minutes and completed
// are owned by the ledger and never written here.
func (r *goalRepository) Update(ctx context.Context, goal *model.Goal) error {
	query := `UPDATE goals
	          SET title = $1, description = $2, start_date = $3, end_date = $4,
	              days_of_week = $5, importance = $6, target_minutes = $7, updated_at = $8
	          WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		goal.Title,
		goal.Description,
		goal.StartDate,
		goal.EndDate,
		goal.DaysOfWeek,
		goal.Importance,
		goal.TargetMinutes,
		time.Now().UTC(),
		goal.ID,
	)
	if err != nil {
		return err
	}

	return affected(result, ErrGoalNotFound)
}

// AddMinutes applies a signed delta as a single storage-level increment,
// floored at zero, and re-evaluates completion against the target in the
// same statement.
func (r *goalRepository) AddMinutes(ctx context.Context, goalID string, delta int) error {
	query := `UPDATE goals
	          SET accumulated_minutes = CASE WHEN accumulated_minutes + $1 < 0 THEN 0 ELSE accumulated_minutes + $1 END,
	              completed = CASE WHEN accumulated_minutes + $1 >= target_minutes THEN TRUE ELSE FALSE END,
	              updated_at = $2
	          WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, delta, time.Now().UTC(), goalID)
	if err != nil {
		return err
	}

	return affected(result, ErrGoalNotFound)
}

// Resync recomputes accumulated_minutes from the goal's time logs.
func (r *goalRepository) Resync(ctx context.Context, goalID string) error {
	query := `UPDATE goals
	          SET accumulated_minutes = (SELECT COALESCE(SUM(minutes), 0) FROM time_logs WHERE goal_id = goals.id),
	              completed = CASE
	                  WHEN (SELECT COALESCE(SUM(minutes), 0) FROM time_logs WHERE goal_id = goals.id) >= target_minutes
	                  THEN TRUE ELSE FALSE END,
	              updated_at = $1
	          WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), goalID)
	if err != nil {
		return err
	}

	return affected(result, ErrGoalNotFound)
}

func (r *goalRepository) Drifted(ctx context.Context) ([]GoalDrift, error) {
	var drifts []GoalDrift
	query := `SELECT g.id AS goal_id, g.accumulated_minutes, COALESCE(SUM(t.minutes), 0) AS logged_minutes
	          FROM goals g
	          LEFT JOIN time_logs t ON t.goal_id = g.id
	          GROUP BY g.id, g.accumulated_minutes
	          HAVING g.accumulated_minutes <> COALESCE(SUM(t.minutes), 0)
	          ORDER BY g.id`

	err := r.db.SelectContext(ctx, &drifts, query)
	if err != nil {
		return nil, err
	}

	return drifts, nil
}

// Delete removes a goal; its time logs go with it (ON DELETE CASCADE).
func (r *goalRepository) Delete(ctx context.Context, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, goalID)
	if err != nil {
		return err
	}

	return affected(result, ErrGoalNotFound)
}
