package model

import (
	"time"
)

const (
	ImportanceMin     = 1
	ImportanceDefault = 3
	ImportanceMax     = 5

	// TargetMinutesMax is 100,000 hours.
	TargetMinutesMax = 100_000 * 60

	// DaysEveryDay is the Mon..Sun mask used when no schedule is given.
	DaysEveryDay = "1111111"
)

type Goal struct {
	ID                 string    `db:"id" json:"id"`
	OwnerID            string    `db:"owner_id" json:"owner_id"`
	TeamID             *string   `db:"team_id" json:"team_id,omitempty"`
	Title              string    `db:"title" json:"title"`
	Description        string    `db:"description" json:"description"`
	StartDate          time.Time `db:"start_date" json:"start_date"`
	EndDate            time.Time `db:"end_date" json:"end_date"`
	DaysOfWeek         string    `db:"days_of_week" json:"days_of_week"`
	Importance         int       `db:"importance" json:"importance"`
	TargetMinutes      int       `db:"target_minutes" json:"target_minutes"`
	AccumulatedMinutes int       `db:"accumulated_minutes" json:"accumulated_minutes"`
	Completed          bool      `db:"completed" json:"completed"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// IsTeamGoal reports whether the goal is shared by a team.
func (g *Goal) IsTeamGoal() bool {
	return g.TeamID != nil && *g.TeamID != ""
}

// ReachedTarget is the completion rule: accumulated time at or above target.
func (g *Goal) ReachedTarget() bool {
	return g.AccumulatedMinutes >= g.TargetMinutes
}
