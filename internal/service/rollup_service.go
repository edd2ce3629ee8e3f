package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// RollupService computes and stores the daily analytics metrics.
type RollupService struct {
	items     repository.WorkItemRepository
	analytics repository.AnalyticsRepository
	logger    *zap.Logger
	now       Clock
}

// NewRollupService constructs the service.
func NewRollupService(items repository.WorkItemRepository, analytics repository.AnalyticsRepository, logger *zap.Logger, clock Clock) *RollupService {
	return &RollupService{
		items:     items,
		analytics: analytics,
		logger:    loggerOrNop(logger),
		now:       clockOrNow(clock),
	}
}

// Run rolls up the items closed since midnight UTC and persists the metrics.
func (s *RollupService) Run(ctx context.Context) ([]domain.AnalyticsMetric, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := s.items.ListClosedBetween(ctx, dayStart, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ids := make([]string, len(closed))
	for i, item := range closed {
		ids[i] = item.ID
	}
	costs, err := s.analytics.ListFinancialImpacts(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	metrics := itsm.DailyRollup(closed, costs, now)
	if err := s.analytics.CreateMetrics(ctx, metrics); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("metric rollup finished", zap.Int("closed_items", len(closed)), zap.Int("metrics", len(metrics)))
	return metrics, nil
}
