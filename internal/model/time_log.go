package model

import (
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

type TimeLog struct {
	ID         string    `db:"id" json:"id"`
	GoalID     string    `db:"goal_id" json:"goal_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	LoggedDate time.Time `db:"logged_date" json:"logged_date"`
	Minutes    int       `db:"minutes" json:"minutes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey identifies the calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
