package itsm

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Rollup metric names.
const (
	MetricMTTR          = "MTTR"
	MetricSLACompliance = "SLA_Compliance"
	MetricDailyCost     = "Daily_Cost"
)

// CalculateMTTR returns the mean minutes from creation to last modification.
// Items never modified count in the denominator but add no time.
func CalculateMTTR(items []domain.WorkItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, wi := range items {
		if wi.ModifiedAt.IsZero() || wi.CreatedAt.IsZero() {
			continue
		}
		total += wi.ModifiedAt.Sub(wi.CreatedAt).Minutes()
	}
	return total / float64(len(items))
}

// SLACompliance returns the percentage of items resolved within their SLA
// target. Items without a target count as compliant. ok is false for no items.
func SLACompliance(items []domain.WorkItem) (percent float64, ok bool) {
	if len(items) == 0 {
		return 0, false
	}
	breaches := 0
	for _, wi := range items {
		if wi.SLATargetMinutes == nil {
			continue
		}
		if wi.ModifiedAt.Sub(wi.CreatedAt).Minutes() > float64(*wi.SLATargetMinutes) {
			breaches++
		}
	}
	total := len(items)
	return 100 * float64(total-breaches) / float64(total), true
}

// DailyRollup computes the day's metrics from items closed that day and their
// booked costs. Metrics without data are omitted.
func DailyRollup(closed []domain.WorkItem, costs []domain.FinancialImpact, now time.Time) []domain.AnalyticsMetric {
	metrics := make([]domain.AnalyticsMetric, 0, 3)
	if len(closed) > 0 {
		metrics = append(metrics, domain.AnalyticsMetric{
			Name:       MetricMTTR,
			MetricType: domain.MetricTypeMinutes,
			Value:      CalculateMTTR(closed),
			RecordedAt: now,
		})
	}
	if compliance, ok := SLACompliance(closed); ok {
		metrics = append(metrics, domain.AnalyticsMetric{
			Name:       MetricSLACompliance,
			MetricType: domain.MetricTypePercent,
			Value:      compliance,
			RecordedAt: now,
		})
	}

	total := decimal.Zero
	for _, c := range costs {
		if c.ActualCost != nil {
			total = total.Add(*c.ActualCost)
		}
	}
	if !total.IsZero() {
		metrics = append(metrics, domain.AnalyticsMetric{
			Name:       MetricDailyCost,
			MetricType: domain.MetricTypeCurrency,
			Value:      total.InexactFloat64(),
			RecordedAt: now,
		})
	}
	return metrics
}
