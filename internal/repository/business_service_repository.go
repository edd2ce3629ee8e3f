package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// BusinessServiceRepository stores the revenue-bearing services work items affect.
type BusinessServiceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.BusinessService, error)
	// GetByIDs returns the found services keyed by id; unknown ids are omitted.
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.BusinessService, error)
}

type businessServiceRepository struct {
	pool *pgxpool.Pool
}

// NewBusinessServiceRepository constructs repository.
func NewBusinessServiceRepository(pool *pgxpool.Pool) BusinessServiceRepository {
	return &businessServiceRepository{pool: pool}
}

const businessServiceColumns = `id, name, criticality, revenue_impact_per_hour::text, created_at, modified_at`

func (r *businessServiceRepository) GetByID(ctx context.Context, id string) (*domain.BusinessService, error) {
	query := `SELECT ` + businessServiceColumns + ` FROM business_services WHERE id=$1`
	return scanBusinessService(r.pool.QueryRow(ctx, query, id))
}

func (r *businessServiceRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.BusinessService, error) {
	result := make(map[string]*domain.BusinessService, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + businessServiceColumns + ` FROM business_services WHERE id = ANY($1::uuid[])`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		svc, err := scanBusinessService(rows)
		if err != nil {
			return nil, err
		}
		result[svc.ID] = svc
	}
	return result, rows.Err()
}

func scanBusinessService(row pgx.Row) (*domain.BusinessService, error) {
	var (
		svc     domain.BusinessService
		revenue *string
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Criticality, &revenue, &svc.CreatedAt, &svc.ModifiedAt); err != nil {
		return nil, err
	}
	rate, err := parseDecimal(revenue)
	if err != nil {
		return nil, err
	}
	svc.RevenueImpactPerHour = rate
	return &svc, nil
}
