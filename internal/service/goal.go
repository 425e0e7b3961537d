package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/events"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/validation"
	"golang.org/x/sync/errgroup"
)

// dashboardFanout bounds the concurrent logged-date reads of a dashboard.
const dashboardFanout = 8

// GoalInput carries the editable fields of a goal.
type GoalInput struct {
	Title         string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	TargetMinutes int
	Importance    int
	DaysOfWeek    string
	TeamID        string
}

// normalize fills defaults and validates. It never touches storage.
func (in *GoalInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if err := validation.ValidateTitle(in.Title); err != nil {
		return invalid("title", err.Error())
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return invalid("description", err.Error())
	}
	if in.TargetMinutes <= 0 {
		return invalid("target_minutes", "a target time is required")
	}
	if in.TargetMinutes > model.TargetMinutesMax {
		return invalid("target_minutes", "is too large")
	}
	if in.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if in.EndDate.IsZero() {
		return invalid("end_date", "is required")
	}

	in.StartDate = model.CalendarDate(in.StartDate)
	in.EndDate = model.CalendarDate(in.EndDate)
	if in.EndDate.Before(in.StartDate) {
		return invalid("end_date", "must not be before the start date")
	}

	if in.Importance == 0 {
		in.Importance = model.ImportanceDefault
	}
	if err := validation.ValidateImportance(in.Importance, model.ImportanceMin, model.ImportanceMax); err != nil {
		return invalid("importance", err.Error())
	}

	if in.DaysOfWeek == "" {
		in.DaysOfWeek = model.DaysEveryDay
	}
	if err := validation.ValidateDaysOfWeek(in.DaysOfWeek); err != nil {
		return invalid("days_of_week", err.Error())
	}

	return nil
}

// GoalService is the call surface used by the presentation layer. It
// authorizes the caller against the goal, then delegates accounting to the
// Journal and Ledger.
type GoalService struct {
	db        *sqlx.DB
	goals     repository.GoalRepository
	logs      repository.TimeLogRepository
	teams     repository.TeamRepository
	ledger    *Ledger
	journal   *Journal
	publisher events.Publisher
}

func NewGoalService(
	db *sqlx.DB,
	goals repository.GoalRepository,
	logs repository.TimeLogRepository,
	teams repository.TeamRepository,
	ledger *Ledger,
	journal *Journal,
	publisher events.Publisher,
) *GoalService {
	return &GoalService{
		db:        db,
		goals:     goals,
		logs:      logs,
		teams:     teams,
		ledger:    ledger,
		journal:   journal,
		publisher: publisher,
	}
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (*model.Goal, error) {
	err := in.normalize()
	if err != nil {
		return nil, err
	}

	var teamID *string
	if in.TeamID != "" {
		member, err := s.teams.Member(ctx, in.TeamID, userID)
		if errors.Is(err, repository.ErrTeamMemberNotFound) {
			return nil, ErrForbidden
		}
		if err != nil {
			return nil, err
		}
		if !member.IsAdmin() {
			return nil, ErrForbidden
		}
		teamID = &in.TeamID
	}

	now := time.Now().UTC()
	goal := &model.Goal{
		ID:                 uuid.New().String(),
		OwnerID:            userID,
		TeamID:             teamID,
		Title:              in.Title,
		Description:        in.Description,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		DaysOfWeek:         in.DaysOfWeek,
		Importance:         in.Importance,
		TargetMinutes:      in.TargetMinutes,
		AccumulatedMinutes: 0,
		Completed:          false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.goals.Create(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goal, nil
}

// Update edits a goal. A changed target re-evaluates completion in the same
// transaction.
func (s *GoalService) Update(ctx context.Context, userID, goalID string, in GoalInput) (*LedgerUpdate, error) {
	err := in.normalize()
	if err != nil {
		return nil, err
	}

	goal, err := s.goals.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	err = s.authorizeManage(ctx, userID, goal)
	if err != nil {
		return nil, err
	}

	goal.Title = in.Title
	goal.Description = in.Description
	goal.StartDate = in.StartDate
	goal.EndDate = in.EndDate
	goal.DaysOfWeek = in.DaysOfWeek
	goal.Importance = in.Importance
	goal.TargetMinutes = in.TargetMinutes

	var update *LedgerUpdate
	err = repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := s.goals.WithTx(tx).Update(ctx, goal)
		if err != nil {
			return err
		}

		update, err = s.ledger.applyDelta(ctx, tx, goalID, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ledger.observe("target", 0, update)
	s.publishTransition(ctx, userID, update)
	return update, nil
}

// Delete removes a goal together with all of its time logs.
func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	goal, err := s.goals.ByID(ctx, goalID)
	if err != nil {
		return err
	}
	err = s.authorizeManage(ctx, userID, goal)
	if err != nil {
		return err
	}

	return repository.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := s.logs.WithTx(tx).DeleteByGoal(ctx, goalID)
		if err != nil {
			return err
		}
		return s.goals.WithTx(tx).Delete(ctx, goalID)
	})
}

// Detail returns a goal with its logs and derived metrics as of today.
func (s *GoalService) Detail(ctx context.Context, userID, goalID string, today time.Time) (*model.GoalDetail, error) {
	goal, err := s.goals.ByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	err = s.authorizeView(ctx, userID, goal)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ByGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(logs))
	for _, log := range logs {
		dates = append(dates, log.LoggedDate)
	}

	return &model.GoalDetail{
		GoalProgress: model.GoalProgress{
			Goal:       goal,
			Percentage: ProgressPercentage(goal.AccumulatedMinutes, goal.TargetMinutes),
			Streak:     Streak(dates, today),
		},
		Logs: logs,
	}, nil
}

// Dashboard lists the user's open goals with progress and streak, plus the
// number of goals already completed.
func (s *GoalService) Dashboard(ctx context.Context, userID string, today time.Time) (*model.Dashboard, error) {
	goals, err := s.goals.ActiveGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	completed, err := s.goals.CountCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed goals: %w", err)
	}

	items, err := s.progress(ctx, goals, today)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		Goals:          items,
		CompletedCount: completed,
	}, nil
}

// TeamDashboard shows every team goal with progress and streak, plus the
// minutes each user contributed. Only team members may read it.
func (s *GoalService) TeamDashboard(ctx context.Context, userID, teamID string, today time.Time) (*model.TeamDashboard, error) {
	team, _, err := s.teamMember(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.TeamGoals(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team goals: %w", err)
	}

	items, err := s.progress(ctx, goals, today)
	if err != nil {
		return nil, err
	}

	contributions, err := s.logs.Contributions(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}

	return &model.TeamDashboard{
		Team:          team,
		Goals:         items,
		Contributions: contributions,
	}, nil
}

// MemberGoals lists the open goals owned by the team's plain members.
// Only team admins may read it.
func (s *GoalService) MemberGoals(ctx context.Context, userID, teamID string) (*model.MemberGoals, error) {
	team, member, err := s.teamMember(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, ErrForbidden
	}

	goals, err := s.goals.MemberActiveGoals(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member goals: %w", err)
	}

	return &model.MemberGoals{
		Team:  team,
		Goals: goals,
	}, nil
}

// LogTime records minutes spent on a goal by userID.
func (s *GoalService) LogTime(ctx context.Context, userID, goalID string, loggedDate time.Time, rawMinutes float64) (*model.TimeLog, *LedgerUpdate, error) {
	goal, err := s.goals.ByID(ctx, goalID)
	if err != nil {
		return nil, nil, err
	}
	err = s.authorizeView(ctx, userID, goal)
	if err != nil {
		return nil, nil, err
	}

	log, update, err := s.journal.CreateEntry(ctx, goalID, userID, loggedDate, rawMinutes)
	if err != nil {
		return nil, nil, err
	}

	s.publishTransition(ctx, userID, update)
	return log, update, nil
}

// EditLog changes the date and minutes of an existing log.
func (s *GoalService) EditLog(ctx context.Context, userID, logID string, loggedDate time.Time, rawMinutes float64) (*model.TimeLog, *LedgerUpdate, error) {
	err := s.authorizeLog(ctx, userID, logID)
	if err != nil {
		return nil, nil, err
	}

	log, update, err := s.journal.UpdateEntry(ctx, logID, loggedDate, rawMinutes)
	if err != nil {
		return nil, nil, err
	}

	s.publishTransition(ctx, userID, update)
	return log, update, nil
}

// DeleteLog removes a log and returns the refreshed goal.
func (s *GoalService) DeleteLog(ctx context.Context, userID, logID string) (*LedgerUpdate, error) {
	err := s.authorizeLog(ctx, userID, logID)
	if err != nil {
		return nil, err
	}

	update, err := s.journal.DeleteEntry(ctx, logID)
	if err != nil {
		return nil, err
	}

	s.publishTransition(ctx, userID, update)
	return update, nil
}

// progress derives percentage and streak for each goal, reading logged
// dates concurrently.
func (s *GoalService) progress(ctx context.Context, goals []*model.Goal, today time.Time) ([]model.GoalProgress, error) {
	items := make([]model.GoalProgress, len(goals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardFanout)
	for i, goal := range goals {
		g.Go(func() error {
			dates, err := s.logs.LoggedDates(gctx, goal.ID)
			if err != nil {
				return fmt.Errorf("failed to load logged dates for goal %s: %w", goal.ID, err)
			}
			items[i] = model.GoalProgress{
				Goal:       goal,
				Percentage: ProgressPercentage(goal.AccumulatedMinutes, goal.TargetMinutes),
				Streak:     Streak(dates, today),
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return items, nil
}

// teamMember loads a team and the caller's membership in it. Outsiders get
// ErrForbidden.
func (s *GoalService) teamMember(ctx context.Context, userID, teamID string) (*model.Team, *model.TeamMember, error) {
	team, err := s.teams.ByID(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}

	member, err := s.teams.Member(ctx, teamID, userID)
	if errors.Is(err, repository.ErrTeamMemberNotFound) {
		return nil, nil, ErrForbidden
	}
	if err != nil {
		return nil, nil, err
	}

	return team, member, nil
}

// membership returns the caller's team membership for a team goal, or nil.
func (s *GoalService) membership(ctx context.Context, userID string, goal *model.Goal) (*model.TeamMember, error) {
	if !goal.IsTeamGoal() {
		return nil, nil
	}

	member, err := s.teams.Member(ctx, *goal.TeamID, userID)
	if errors.Is(err, repository.ErrTeamMemberNotFound) {
		return nil, nil
	}
	return member, err
}

// authorizeView allows the owner and, for team goals, every team member.
// Members may also log time.
func (s *GoalService) authorizeView(ctx context.Context, userID string, goal *model.Goal) error {
	if goal.OwnerID == userID {
		return nil
	}

	member, err := s.membership(ctx, userID, goal)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrForbidden
	}
	return nil
}

// authorizeManage allows the owner and team admins.
func (s *GoalService) authorizeManage(ctx context.Context, userID string, goal *model.Goal) error {
	if goal.OwnerID == userID {
		return nil
	}

	member, err := s.membership(ctx, userID, goal)
	if err != nil {
		return err
	}
	if member == nil || !member.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// authorizeLog allows the log's author plus whoever may manage its goal.
func (s *GoalService) authorizeLog(ctx context.Context, userID, logID string) error {
	log, err := s.logs.ByID(ctx, logID)
	if err != nil {
		return err
	}
	if log.UserID == userID {
		return nil
	}

	goal, err := s.goals.ByID(ctx, log.GoalID)
	if err != nil {
		return err
	}
	return s.authorizeManage(ctx, userID, goal)
}

// publishTransition emits an event when a committed update flipped the
// completion flag. The write already succeeded, so failures are only logged.
func (s *GoalService) publishTransition(ctx context.Context, actorID string, update *LedgerUpdate) {
	var kind events.Kind
	switch {
	case update.JustCompleted():
		kind = events.KindGoalCompleted
	case update.Reopened():
		kind = events.KindGoalReopened
	default:
		return
	}

	goal := update.Goal
	event := events.Event{
		Kind:               kind,
		GoalID:             goal.ID,
		OwnerID:            goal.OwnerID,
		ActorID:            actorID,
		Title:              goal.Title,
		AccumulatedMinutes: goal.AccumulatedMinutes,
		TargetMinutes:      goal.TargetMinutes,
		OccurredAt:         time.Now().UTC(),
	}
	if goal.IsTeamGoal() {
		event.TeamID = *goal.TeamID
	}

	err := s.publisher.Publish(ctx, event)
	if err != nil {
		slog.Error("failed to publish goal transition", "error", err, "kind", kind, "goal_id", goal.ID)
	}
}
