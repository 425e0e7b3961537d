package routes

import (
	"net/http"

	"github.com/templui/goaltrack/internal/app"
	"github.com/templui/goaltrack/internal/handler"
	"github.com/templui/goaltrack/internal/metrics"
	"github.com/templui/goaltrack/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	goal := handler.NewGoalHandler(app.GoalService)
	export := handler.NewExportHandler(app.ExportService)
	health := handler.NewHealthHandler(app.DB)

	auth := middleware.NewAuthenticator(app.Cfg.JWTSecret)
	// The limiter's cleanup goroutine belongs to the App; App.Close stops it.
	if app.WriteLimiter == nil {
		app.WriteLimiter = middleware.NewRateLimiter(app.Cfg.WriteRateLimit, app.Cfg.WriteRateWindow)
	}
	limit := middleware.RateLimitWrites(app.WriteLimiter)

	// write wraps state-changing endpoints: authenticated, then rate limited per user
	write := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(limit(h))
	}

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.Handle("GET /metrics", metrics.Handler())

	// ============================================================================
	// API (/api/*)
	// ============================================================================

	// Dashboard
	mux.HandleFunc("GET /api/dashboard", middleware.RequireAuth(goal.Dashboard))

	// Teams
	mux.HandleFunc("GET /api/teams/{id}/dashboard", middleware.RequireAuth(goal.TeamDashboard))
	mux.HandleFunc("GET /api/teams/{id}/members/goals", middleware.RequireAuth(goal.MemberGoals))

	// Goals
	mux.HandleFunc("POST /api/goals", write(goal.Create))
	mux.HandleFunc("GET /api/goals/{id}", middleware.RequireAuth(goal.Detail))
	mux.HandleFunc("PUT /api/goals/{id}", write(goal.Update))
	mux.HandleFunc("DELETE /api/goals/{id}", write(goal.Delete))

	// Time logs
	mux.HandleFunc("POST /api/goals/{id}/logs", write(goal.LogTime))
	mux.HandleFunc("PUT /api/logs/{id}", write(goal.EditLog))
	mux.HandleFunc("DELETE /api/logs/{id}", write(goal.DeleteLog))

	// Exports
	mux.HandleFunc("POST /api/exports", write(export.Create))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLogging,
		auth.Middleware,
	)

	return handler
}
