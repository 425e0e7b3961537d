package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/goaltrack/internal/model"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/service"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"validation", &service.ValidationError{Field: "minutes", Message: "must be greater than zero"}, http.StatusUnprocessableEntity, "minutes"},
		{"wrapped validation", fmt.Errorf("create: %w", &service.ValidationError{Field: "title", Message: "is required"}), http.StatusUnprocessableEntity, "title"},
		{"goal not found", repository.ErrGoalNotFound, http.StatusNotFound, ""},
		{"log not found", repository.ErrTimeLogNotFound, http.StatusNotFound, ""},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, ""},
		{"exports disabled", service.ErrExportDisabled, http.StatusServiceUnavailable, ""},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.field, body.Field)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body.Error)
			}
		})
	}
}

func TestGoalRequest_Input(t *testing.T) {
	t.Run("hours and minutes add up", func(t *testing.T) {
		in, err := goalRequest{
			Title:         "Piano",
			StartDate:     "2026-10-01",
			EndDate:       "2026-10-31",
			TargetHours:   2,
			TargetMinutes: 15,
		}.input()
		require.NoError(t, err)
		assert.Equal(t, 135, in.TargetMinutes)
		assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), in.StartDate)
	})

	tests := []struct {
		name  string
		req   goalRequest
		field string
	}{
		{"negative hours", goalRequest{TargetHours: -1}, "target_hours"},
		{"negative minutes", goalRequest{TargetMinutes: -1}, "target_minutes"},
		{"hours overflow", goalRequest{TargetHours: math.MaxInt / 30}, "target_minutes"},
		{"minutes too large", goalRequest{TargetMinutes: model.TargetMinutesMax + 1}, "target_minutes"},
		{"bad start", goalRequest{StartDate: "tomorrow"}, "start_date"},
		{"bad end", goalRequest{StartDate: "2026-10-01", EndDate: "2026-13-01"}, "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.input()
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLogRequest_LoggedDate(t *testing.T) {
	today := time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)

	date, err := logRequest{}.loggedDate(today)
	require.NoError(t, err)
	assert.Equal(t, today, date)

	date, err = logRequest{LoggedDate: "2026-10-12"}.loggedDate(today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), date)

	_, err = logRequest{LoggedDate: "12.10.2026"}.loggedDate(today)
	assert.True(t, service.IsValidation(err))
}
