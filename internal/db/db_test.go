package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	database, err := Init(DriverSQLite, filepath.Join(dir, "goaltrack.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer Close(database)

	assert.DirExists(t, dir)
}

func TestMigrations_UpAndDown(t *testing.T) {
	database, err := Init(DriverSQLite, filepath.Join(t.TempDir(), "goaltrack.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer Close(database)

	require.NoError(t, RunMigrations(database.DB, DriverSQLite))

	var tables []string
	require.NoError(t, database.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('goals', 'time_logs', 'teams', 'team_members') ORDER BY name`))
	assert.Equal(t, []string{"goals", "team_members", "teams", "time_logs"}, tables)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(database.DB, DriverSQLite))

	require.NoError(t, MigrateDown(database.DB, DriverSQLite))
	tables = nil
	require.NoError(t, database.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'goals'`))
	assert.Empty(t, tables)
}

func TestIsMemory(t *testing.T) {
	assert.True(t, isMemory(":memory:"))
	assert.True(t, isMemory("file:test?mode=memory&cache=shared"))
	assert.False(t, isMemory("./data/goaltrack.db"))
}
