package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	// GetByName resolves escalation references such as "incident_managers".
	GetByName(ctx context.Context, name string) (*domain.Team, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	const query = `SELECT id, name, created_at, modified_at FROM teams WHERE name=$1`
	return r.getOne(ctx, query, name)
}

func (r *teamRepository) getOne(ctx context.Context, query string, arg any) (*domain.Team, error) {
	var team domain.Team
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&team.ID,
		&team.Name,
		&team.CreatedAt,
		&team.ModifiedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}
