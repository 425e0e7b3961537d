package handler

import (
	"net/http"
	"time"

	"github.com/templui/goaltrack/internal/ctxkeys"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/service"
)

type GoalHandler struct {
	goalService *service.GoalService
	now         func() time.Time
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
		now:         time.Now,
	}
}

type goalRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TargetHours   int    `json:"target_hours"`
	TargetMinutes int    `json:"target_minutes"`
	Importance    int    `json:"importance"`
	DaysOfWeek    string `json:"days_of_week"`
	TeamID        string `json:"team_id"`
}

// input converts the request to a service input. The target may be given
// as hours plus minutes; both add up to target_minutes.
func (req goalRequest) input() (service.GoalInput, error) {
	if req.TargetHours < 0 {
		return service.GoalInput{}, &service.ValidationError{Field: "target_hours", Message: "must not be negative"}
	}
	if req.TargetMinutes < 0 {
		return service.GoalInput{}, &service.ValidationError{Field: "target_minutes", Message: "must not be negative"}
	}
	if req.TargetHours > model.TargetMinutesMax/60 || req.TargetMinutes > model.TargetMinutesMax {
		return service.GoalInput{}, &service.ValidationError{Field: "target_minutes", Message: "is too large"}
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return service.GoalInput{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return service.GoalInput{}, err
	}

	return service.GoalInput{
		Title:         req.Title,
		Description:   req.Description,
		StartDate:     start,
		EndDate:       end,
		TargetMinutes: req.TargetHours*60 + req.TargetMinutes,
		Importance:    req.Importance,
		DaysOfWeek:    req.DaysOfWeek,
		TeamID:        req.TeamID,
	}, nil
}

type logRequest struct {
	LoggedDate string  `json:"logged_date"`
	Minutes    float64 `json:"minutes"`
}

// loggedDate defaults to today when the client omits the date.
func (req logRequest) loggedDate(today time.Time) (time.Time, error) {
	date, err := parseDate("logged_date", req.LoggedDate)
	if err != nil {
		return time.Time{}, err
	}
	if date.IsZero() {
		return today, nil
	}
	return date, nil
}

// today is the reference day for streaks. Clients in other time zones pass
// their local calendar day as ?date=YYYY-MM-DD.
func (h *GoalHandler) today(r *http.Request) (time.Time, error) {
	date, err := parseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		return time.Time{}, err
	}
	if date.IsZero() {
		return h.now().UTC(), nil
	}
	return date, nil
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req goalRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.goalService.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	goalID := r.PathValue("id")

	today, err := h.today(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := h.goalService.Detail(r.Context(), userID, goalID, today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	goalID := r.PathValue("id")

	var req goalRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	update, err := h.goalService.Update(r.Context(), userID, goalID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newLedgerResponse(update, nil))
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	goalID := r.PathValue("id")

	err := h.goalService.Delete(r.Context(), userID, goalID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) LogTime(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	goalID := r.PathValue("id")

	var req logRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := req.loggedDate(h.now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	log, update, err := h.goalService.LogTime(r.Context(), userID, goalID, date, req.Minutes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newLedgerResponse(update, log))
}

func (h *GoalHandler) EditLog(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	logID := r.PathValue("id")

	var req logRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := req.loggedDate(h.now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}

	log, update, err := h.goalService.EditLog(r.Context(), userID, logID, date, req.Minutes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newLedgerResponse(update, log))
}

func (h *GoalHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	logID := r.PathValue("id")

	update, err := h.goalService.DeleteLog(r.Context(), userID, logID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newLedgerResponse(update, nil))
}
