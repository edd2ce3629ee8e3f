package dto

import (
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/itsm"
)

// SLACheckResponse payload.
type SLACheckResponse struct {
	Alerts []itsm.BreachAlert `json:"alerts"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	WorkItemID       string `json:"work_item_id"`
	EscalationTarget string `json:"escalation_target"`
}

// EscalateResponse payload.
type EscalateResponse struct {
	WorkItemID       string `json:"work_item_id"`
	EscalationTarget string `json:"escalation_target"`
	Recipient        string `json:"recipient"`
	Resolved         bool   `json:"resolved"`
}

// ComplianceCheckResponse payload.
type ComplianceCheckResponse struct {
	Expired []itsm.CertificateAlert `json:"expired"`
}

// MetricResponse is one rollup metric.
type MetricResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	MetricType domain.MetricType `json:"metric_type"`
	Value      float64           `json:"value"`
	RecordedAt string            `json:"recorded_at"`
}

// MetricRollupResponse payload.
type MetricRollupResponse struct {
	Metrics []MetricResponse `json:"metrics"`
}
