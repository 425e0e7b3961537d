package model

// GoalProgress is a goal with the metrics derived at read time.
type GoalProgress struct {
	Goal       *Goal `json:"goal"`
	Percentage int   `json:"percentage"`
	Streak     int   `json:"streak"`
}

type Dashboard struct {
	Goals          []GoalProgress `json:"goals"`
	CompletedCount int            `json:"completed_count"`
}

type GoalDetail struct {
	GoalProgress
	Logs []*TimeLog `json:"logs"`
}

// Contribution is the total time one user logged against a team's goals.
type Contribution struct {
	UserID  string `db:"user_id" json:"user_id"`
	Minutes int    `db:"minutes" json:"minutes"`
}

type TeamDashboard struct {
	Team          *Team          `json:"team"`
	Goals         []GoalProgress `json:"goals"`
	Contributions []Contribution `json:"contributions"`
}

// MemberGoals lists the open goals of a team's plain members.
type MemberGoals struct {
	Team  *Team   `json:"team"`
	Goals []*Goal `json:"goals"`
}
