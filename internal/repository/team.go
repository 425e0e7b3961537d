package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/model"
)

var (
	ErrTeamNotFound       = fmt.Errorf("team %w", ErrNotFound)
	ErrTeamMemberNotFound = fmt.Errorf("team member %w", ErrNotFound)
)

// TeamRepository reads team membership for goal authorization. Team
// management screens live elsewhere; Create and AddMember exist for
// seeding and tests.
type TeamRepository interface {
	WithTx(tx *sqlx.Tx) TeamRepository
	Create(ctx context.Context, team *model.Team) error
	ByID(ctx context.Context, teamID string) (*model.Team, error)
	AddMember(ctx context.Context, member *model.TeamMember) error
	Member(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
}

type teamRepository struct {
	db DBTX
}

func NewTeamRepository(db DBTX) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) WithTx(tx *sqlx.Tx) TeamRepository {
	return &teamRepository{db: tx}
}

func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	query := `INSERT INTO teams (id, name, description, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, team.ID, team.Name, team.Description, team.CreatedAt)
	return err
}

func (r *teamRepository) ByID(ctx context.Context, teamID string) (*model.Team, error) {
	team := &model.Team{}
	query := `SELECT * FROM teams WHERE id = $1`

	err := r.db.GetContext(ctx, team, query, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}

	return team, nil
}

func (r *teamRepository) AddMember(ctx context.Context, member *model.TeamMember) error {
	query := `INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, member.TeamID, member.UserID, member.Role, member.CreatedAt)
	return err
}

func (r *teamRepository) Member(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	member := &model.TeamMember{}
	query := `SELECT * FROM team_members WHERE team_id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, member, query, teamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	return member, nil
}
