package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/goaltrack/internal/app"
	"github.com/templui/goaltrack/internal/config"
	"github.com/templui/goaltrack/internal/db"
	"github.com/templui/goaltrack/internal/events"
	"github.com/templui/goaltrack/internal/middleware"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/service"
)

const testSecret = "routes-test-secret"

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	auth   *middleware.Authenticator
	teams  repository.TeamRepository
}

func newAPI(t *testing.T, writeLimit int) *apiClient {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "goaltrack.db") +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_txlock=immediate"
	database, err := db.Init(db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, db.DriverSQLite))

	goals := repository.NewGoalRepository(database)
	logs := repository.NewTimeLogRepository(database)
	teams := repository.NewTeamRepository(database)
	ledger := service.NewLedger(database, goals)
	journal := service.NewJournal(database, logs, ledger)
	limiter := middleware.NewRateLimiter(writeLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	a := &app.App{
		Cfg: &config.Config{
			AppEnv:          "development",
			JWTSecret:       testSecret,
			WriteRateLimit:  writeLimit,
			WriteRateWindow: time.Minute,
		},
		DB:            database,
		Publisher:     events.NewLogPublisher(),
		Ledger:        ledger,
		Journal:       journal,
		GoalService:   service.NewGoalService(database, goals, logs, teams, ledger, journal, events.NewLogPublisher()),
		ExportService: service.NewExportService(goals, logs, nil, time.Hour),
		WriteLimiter:  limiter,
	}

	server := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(server.Close)

	return &apiClient{t: t, server: server, auth: middleware.NewAuthenticator(testSecret), teams: teams}
}

// do sends a request as userID ("" for anonymous) and decodes the JSON
// response into out when given.
func (c *apiClient) do(method, path, userID string, body any, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := c.auth.Sign(userID, time.Hour)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type goalBody struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	TargetMinutes      int    `json:"target_minutes"`
	AccumulatedMinutes int    `json:"accumulated_minutes"`
	Completed          bool   `json:"completed"`
}

type ledgerBody struct {
	Goal          goalBody `json:"goal"`
	Percentage    int      `json:"percentage"`
	JustCompleted bool     `json:"just_completed"`
	Reopened      bool     `json:"reopened"`
	Log           *struct {
		ID      string `json:"id"`
		Minutes int    `json:"minutes"`
	} `json:"log"`
}

func TestAPI_GoalLifecycle(t *testing.T) {
	api := newAPI(t, 100)

	var goal goalBody
	status := api.do(http.MethodPost, "/api/goals", "u1", map[string]any{
		"title":          "Guitar",
		"start_date":     "2026-10-01",
		"end_date":       "2026-12-31",
		"target_hours":   1,
		"target_minutes": 0,
		"importance":     4,
	}, &goal)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 60, goal.TargetMinutes)

	var first ledgerBody
	status = api.do(http.MethodPost, "/api/goals/"+goal.ID+"/logs", "u1", map[string]any{
		"logged_date": "2026-10-14",
		"minutes":     30,
	}, &first)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, first.Log)
	assert.Equal(t, 30, first.Goal.AccumulatedMinutes)
	assert.Equal(t, 50, first.Percentage)

	var second ledgerBody
	status = api.do(http.MethodPost, "/api/goals/"+goal.ID+"/logs", "u1", map[string]any{
		"logged_date": "2026-10-15",
		"minutes":     29.5,
	}, &second)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 60, second.Goal.AccumulatedMinutes)
	assert.True(t, second.Goal.Completed)
	assert.True(t, second.JustCompleted)

	var detail struct {
		Goal       goalBody `json:"goal"`
		Percentage int      `json:"percentage"`
		Streak     int      `json:"streak"`
		Logs       []struct {
			Minutes int `json:"minutes"`
		} `json:"logs"`
	}
	status = api.do(http.MethodGet, "/api/goals/"+goal.ID+"?date=2026-10-15", "u1", nil, &detail)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 100, detail.Percentage)
	assert.Equal(t, 2, detail.Streak)
	assert.Len(t, detail.Logs, 2)

	var edited ledgerBody
	status = api.do(http.MethodPut, "/api/logs/"+first.Log.ID, "u1", map[string]any{
		"logged_date": "2026-10-14",
		"minutes":     10,
	}, &edited)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 40, edited.Goal.AccumulatedMinutes)
	assert.True(t, edited.Reopened)

	var dashboard struct {
		Goals []struct {
			Goal goalBody `json:"goal"`
		} `json:"goals"`
		CompletedCount int `json:"completed_count"`
	}
	status = api.do(http.MethodGet, "/api/dashboard", "u1", nil, &dashboard)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, dashboard.Goals, 1)
	assert.Equal(t, goal.ID, dashboard.Goals[0].Goal.ID)
	assert.Zero(t, dashboard.CompletedCount)

	var deleted ledgerBody
	status = api.do(http.MethodDelete, "/api/logs/"+first.Log.ID, "u1", nil, &deleted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 30, deleted.Goal.AccumulatedMinutes)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/logs/"+first.Log.ID, "u1", nil, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/goals/"+goal.ID, "u2", nil, nil))
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/goals/"+goal.ID, "u1", nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/goals/"+goal.ID, "u1", nil, nil))
}

func TestAPI_Errors(t *testing.T) {
	api := newAPI(t, 100)

	var goal goalBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "u1", map[string]any{
		"title":          "Run",
		"start_date":     "2026-10-01",
		"end_date":       "2026-10-31",
		"target_minutes": 120,
	}, &goal))

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"anonymous dashboard", http.MethodGet, "/api/dashboard", "", nil, http.StatusUnauthorized},
		{"anonymous create", http.MethodPost, "/api/goals", "", map[string]any{"title": "x"}, http.StatusUnauthorized},
		{"missing target", http.MethodPost, "/api/goals", "u1", map[string]any{
			"title": "x", "start_date": "2026-10-01", "end_date": "2026-10-02",
		}, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/goals", "u1", map[string]any{
			"title": "x", "start_date": "01/10/2026", "end_date": "2026-10-02", "target_minutes": 5,
		}, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/api/goals", "u1", map[string]any{"titel": "x"}, http.StatusUnprocessableEntity},
		{"zero minutes", http.MethodPost, "/api/goals/" + goal.ID + "/logs", "u1", map[string]any{"minutes": 0}, http.StatusUnprocessableEntity},
		{"minutes rounding to zero", http.MethodPost, "/api/goals/" + goal.ID + "/logs", "u1", map[string]any{"minutes": 0.4}, http.StatusUnprocessableEntity},
		{"log on missing goal", http.MethodPost, "/api/goals/missing/logs", "u1", map[string]any{"minutes": 5}, http.StatusNotFound},
		{"log on foreign goal", http.MethodPost, "/api/goals/" + goal.ID + "/logs", "u2", map[string]any{"minutes": 5}, http.StatusForbidden},
		{"exports disabled", http.MethodPost, "/api/exports", "u1", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, api.do(tt.method, tt.path, tt.user, tt.body, nil))
		})
	}

	// None of the rejected writes reached the ledger.
	var detail struct {
		Goal goalBody `json:"goal"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/goals/"+goal.ID, "u1", nil, &detail))
	assert.Zero(t, detail.Goal.AccumulatedMinutes)
}

func TestAPI_WriteRateLimit(t *testing.T) {
	api := newAPI(t, 2)

	body := map[string]any{
		"title": "Read", "start_date": "2026-10-01", "end_date": "2026-10-31", "target_minutes": 30,
	}
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "u1", body, nil))
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "u1", body, nil))
	assert.Equal(t, http.StatusTooManyRequests, api.do(http.MethodPost, "/api/goals", "u1", body, nil))

	// Reads and other users are not affected.
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/dashboard", "u1", nil, nil))
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "u2", body, nil))
}

func TestAPI_Operations(t *testing.T) {
	api := newAPI(t, 100)

	var health map[string]string
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	resp, err := http.Get(api.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// seedTeam creates a team with the given members; teams have no API of their own.
func (c *apiClient) seedTeam(id string, members map[string]string) {
	c.t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(c.t, c.teams.Create(ctx, &model.Team{ID: id, Name: id, CreatedAt: now}))
	for userID, role := range members {
		require.NoError(c.t, c.teams.AddMember(ctx, &model.TeamMember{TeamID: id, UserID: userID, Role: role, CreatedAt: now}))
	}
}

func TestAPI_TeamViews(t *testing.T) {
	api := newAPI(t, 100)
	api.seedTeam("crew", map[string]string{
		"lead": model.TeamRoleAdmin,
		"ana":  model.TeamRoleMember,
		"ben":  model.TeamRoleMember,
	})

	var shared goalBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "lead", map[string]any{
		"title": "Ship", "start_date": "2026-10-01", "end_date": "2026-10-31", "target_minutes": 100, "team_id": "crew",
	}, &shared))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals/"+shared.ID+"/logs", "ana", map[string]any{
		"logged_date": "2026-10-15", "minutes": 20,
	}, nil))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals/"+shared.ID+"/logs", "ben", map[string]any{
		"logged_date": "2026-10-14", "minutes": 50,
	}, nil))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/goals", "ana", map[string]any{
		"title": "Read", "start_date": "2026-10-01", "end_date": "2026-11-30", "target_minutes": 60,
	}, nil))

	var dashboard struct {
		Team struct {
			ID string `json:"id"`
		} `json:"team"`
		Goals []struct {
			Goal       goalBody `json:"goal"`
			Percentage int      `json:"percentage"`
			Streak     int      `json:"streak"`
		} `json:"goals"`
		Contributions []struct {
			UserID  string `json:"user_id"`
			Minutes int    `json:"minutes"`
		} `json:"contributions"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/teams/crew/dashboard?date=2026-10-15", "ana", nil, &dashboard))
	assert.Equal(t, "crew", dashboard.Team.ID)
	require.Len(t, dashboard.Goals, 1)
	assert.Equal(t, shared.ID, dashboard.Goals[0].Goal.ID)
	assert.Equal(t, 70, dashboard.Goals[0].Percentage)
	assert.Equal(t, 2, dashboard.Goals[0].Streak)
	require.Len(t, dashboard.Contributions, 2)
	assert.Equal(t, "ben", dashboard.Contributions[0].UserID)
	assert.Equal(t, 50, dashboard.Contributions[0].Minutes)
	assert.Equal(t, "ana", dashboard.Contributions[1].UserID)

	var members struct {
		Goals []goalBody `json:"goals"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/teams/crew/members/goals", "lead", nil, &members))
	require.Len(t, members.Goals, 1)
	assert.Equal(t, "Read", members.Goals[0].Title)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/teams/crew/dashboard", "outsider", nil, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/teams/crew/members/goals", "ana", nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/teams/missing/dashboard", "ana", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/teams/crew/dashboard", "", nil, nil))
}

func TestSetupRoutes_OwnsWriteLimiterOnApp(t *testing.T) {
	a := &app.App{
		Cfg: &config.Config{WriteRateLimit: 1, WriteRateWindow: time.Minute},
	}

	SetupRoutes(a)
	require.NotNil(t, a.WriteLimiter)
	limiter := a.WriteLimiter

	// A second setup reuses the limiter instead of starting another one.
	SetupRoutes(a)
	assert.Same(t, limiter, a.WriteLimiter)

	require.NoError(t, a.Close())
	select {
	case <-limiter.Done():
	default:
		t.Fatal("Close did not stop the write limiter")
	}
}
