package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricType is the unit of an analytics rollup value.
type MetricType string

const (
	MetricTypeMinutes  MetricType = "minutes"
	MetricTypePercent  MetricType = "percent"
	MetricTypeCurrency MetricType = "currency"
)

// AnalyticsMetric is a persisted rollup value.
type AnalyticsMetric struct {
	ID         string
	Name       string
	MetricType MetricType
	Value      float64
	RecordedAt time.Time
}

// FinancialImpact holds the booked cost of a work item.
type FinancialImpact struct {
	WorkItemID    string
	EstimatedCost *decimal.Decimal
	ActualCost    *decimal.Decimal
	RevenueLoss   *decimal.Decimal
	BillableHours int
}
