package service

import (
	"time"

	"github.com/templui/goaltrack/internal/model"
)

// Streak counts the consecutive calendar days with at least one log, ending
// at reference or, when nothing was logged on reference yet, the day before.
// It is zero once both days are missing.
func Streak(loggedDates []time.Time, reference time.Time) int {
	days := make(map[string]struct{}, len(loggedDates))
	for _, d := range loggedDates {
		days[model.DateKey(d)] = struct{}{}
	}

	cursor := model.CalendarDate(reference)
	if _, ok := days[model.DateKey(cursor)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[model.DateKey(cursor)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}
