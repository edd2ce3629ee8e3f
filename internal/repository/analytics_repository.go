package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// AnalyticsRepository persists rollup metrics and reads booked costs.
type AnalyticsRepository interface {
	CreateMetrics(ctx context.Context, metrics []domain.AnalyticsMetric) error
	ListFinancialImpacts(ctx context.Context, workItemIDs []string) ([]domain.FinancialImpact, error)
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository constructs repository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

func (r *analyticsRepository) CreateMetrics(ctx context.Context, metrics []domain.AnalyticsMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	const query = `
        INSERT INTO analytics_metrics (name, metric_type, value, recorded_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i := range metrics {
		m := &metrics[i]
		if err := tx.QueryRow(ctx, query, m.Name, m.MetricType, m.Value, m.RecordedAt).Scan(&m.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *analyticsRepository) ListFinancialImpacts(ctx context.Context, workItemIDs []string) ([]domain.FinancialImpact, error) {
	if len(workItemIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT work_item_id, estimated_cost::text, actual_cost::text, revenue_loss::text, billable_hours
        FROM financial_impacts WHERE work_item_id = ANY($1::uuid[])`
	rows, err := r.pool.Query(ctx, query, workItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FinancialImpact
	for rows.Next() {
		impact, err := scanFinancialImpact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *impact)
	}
	return result, rows.Err()
}

func scanFinancialImpact(row pgx.Row) (*domain.FinancialImpact, error) {
	var (
		impact                     domain.FinancialImpact
		estimated, actual, revLoss *string
	)
	if err := row.Scan(&impact.WorkItemID, &estimated, &actual, &revLoss, &impact.BillableHours); err != nil {
		return nil, err
	}
	var err error
	if impact.EstimatedCost, err = parseDecimal(estimated); err != nil {
		return nil, err
	}
	if impact.ActualCost, err = parseDecimal(actual); err != nil {
		return nil, err
	}
	if impact.RevenueLoss, err = parseDecimal(revLoss); err != nil {
		return nil, err
	}
	return &impact, nil
}
