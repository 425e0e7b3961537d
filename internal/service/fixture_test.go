package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/goaltrack/internal/db"
	"github.com/templui/goaltrack/internal/events"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
)

var today = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return model.CalendarDate(today).AddDate(0, 0, offset)
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "goaltrack.db") +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_txlock=immediate"

	database, err := db.Init(db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, db.DriverSQLite))
	return database
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	db      *sqlx.DB
	goals   repository.GoalRepository
	logs    repository.TimeLogRepository
	teams   repository.TeamRepository
	ledger  *Ledger
	journal *Journal
	svc     *GoalService
	pub     *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := newTestDB(t)
	goals := repository.NewGoalRepository(database)
	logs := repository.NewTimeLogRepository(database)
	teams := repository.NewTeamRepository(database)
	ledger := NewLedger(database, goals)
	journal := NewJournal(database, logs, ledger)
	pub := &recordingPublisher{}

	return &fixture{
		db:      database,
		goals:   goals,
		logs:    logs,
		teams:   teams,
		ledger:  ledger,
		journal: journal,
		svc:     NewGoalService(database, goals, logs, teams, ledger, journal, pub),
		pub:     pub,
	}
}

func goalInput(title string, target int) GoalInput {
	return GoalInput{
		Title:         title,
		StartDate:     day(-30),
		EndDate:       day(30),
		TargetMinutes: target,
	}
}

func (f *fixture) createGoal(t *testing.T, ownerID string, target int) *model.Goal {
	t.Helper()
	goal, err := f.svc.Create(context.Background(), ownerID, goalInput("Practice", target))
	require.NoError(t, err)
	return goal
}

func (f *fixture) reload(t *testing.T, goalID string) *model.Goal {
	t.Helper()
	goal, err := f.goals.ByID(context.Background(), goalID)
	require.NoError(t, err)
	return goal
}

func (f *fixture) createTeam(t *testing.T, name string, members map[string]string) *model.Team {
	t.Helper()
	ctx := context.Background()

	team := &model.Team{ID: "team-" + name, Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.teams.Create(ctx, team))
	for userID, role := range members {
		require.NoError(t, f.teams.AddMember(ctx, &model.TeamMember{
			TeamID:    team.ID,
			UserID:    userID,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		}))
	}
	return team
}
