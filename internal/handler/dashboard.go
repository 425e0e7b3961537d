package handler

import (
	"net/http"

	"github.com/templui/goaltrack/internal/ctxkeys"
)

// Dashboard lists the caller's open goals. It shares the goal handler's
// clock and reference-day handling.
func (h *GoalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	today, err := h.today(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dashboard, err := h.goalService.Dashboard(r.Context(), userID, today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// TeamDashboard shows a team's goals and member contributions to any
// member of the team.
func (h *GoalHandler) TeamDashboard(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	teamID := r.PathValue("id")

	today, err := h.today(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dashboard, err := h.goalService.TeamDashboard(r.Context(), userID, teamID, today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

func (h *GoalHandler) MemberGoals(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goals, err := h.goalService.MemberGoals(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goals)
}
