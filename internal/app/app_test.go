package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/templui/goaltrack/internal/config"
	"github.com/templui/goaltrack/internal/db"
)

func TestApp_CloseStopsWriteLimiter(t *testing.T) {
	a, err := New(&config.Config{
		AppEnv:               "development",
		DBDriver:             db.DriverSQLite,
		DBConnection:         filepath.Join(t.TempDir(), "goaltrack.db") + "?_pragma=foreign_keys(1)",
		JWTSecret:            "app-test-secret",
		WriteRateLimit:       10,
		WriteRateWindow:      time.Minute,
		ReconcileConcurrency: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, a.WriteLimiter)

	select {
	case <-a.WriteLimiter.Done():
		t.Fatal("limiter stopped before Close")
	default:
	}

	require.NoError(t, a.Close())

	select {
	case <-a.WriteLimiter.Done():
	case <-time.After(time.Second):
		t.Fatal("limiter still running after Close")
	}

	// A second Stop is harmless.
	a.WriteLimiter.Stop()
}
