package model

import (
	"time"
)

const (
	TeamRoleAdmin  = "admin"
	TeamRoleMember = "member"
)

type Team struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	TeamID    string    `db:"team_id" json:"team_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *TeamMember) IsAdmin() bool {
	return m.Role == TeamRoleAdmin
}
