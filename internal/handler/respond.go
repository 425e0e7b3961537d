package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/goaltrack/internal/ctxkeys"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/service"
)

// maxBodyBytes caps request bodies; goal and log payloads are tiny.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service and repository errors to status codes. Anything
// unexpected is logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
		})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrExportDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", ctxkeys.UserID(r.Context()),
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON reads a single JSON object into dst. Malformed bodies are
// reported as validation errors on the "body" field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return &service.ValidationError{Field: "body", Message: err.Error()}
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return &service.ValidationError{Field: "body", Message: "must contain a single JSON object"}
	}
	return nil
}

// parseDate reads an optional YYYY-MM-DD value. Empty yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	date, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, &service.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be a %s date", model.DateLayout),
		}
	}
	return date, nil
}

// ledgerResponse is the goal state after a write plus the transition it
// caused, if any.
type ledgerResponse struct {
	Goal          *model.Goal    `json:"goal"`
	Percentage    int            `json:"percentage"`
	JustCompleted bool           `json:"just_completed"`
	Reopened      bool           `json:"reopened"`
	Log           *model.TimeLog `json:"log,omitempty"`
}

func newLedgerResponse(update *service.LedgerUpdate, log *model.TimeLog) ledgerResponse {
	return ledgerResponse{
		Goal:          update.Goal,
		Percentage:    service.ProgressPercentage(update.Goal.AccumulatedMinutes, update.Goal.TargetMinutes),
		JustCompleted: update.JustCompleted(),
		Reopened:      update.Reopened(),
		Log:           log,
	}
}
