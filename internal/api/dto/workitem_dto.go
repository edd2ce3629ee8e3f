package dto

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/itsm"
)

// CreateWorkItemRequest payload.
type CreateWorkItemRequest struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	WorkType          domain.WorkType `json:"work_type"`
	Priority          domain.Priority `json:"priority"`
	SLATargetMinutes  *int            `json:"sla_target_minutes"`
	BusinessServiceID *string         `json:"business_service_id"`
	AssetID           *string         `json:"asset_id"`
	AssigneeUserID    *string         `json:"assignee_user_id"`
	AssigneeTeamID    *string         `json:"assignee_team_id"`
}

// UpdateStatusRequest payload. ModifiedAt, when set, must match the stored
// value or the update is rejected as a conflict.
type UpdateStatusRequest struct {
	Status     domain.WorkItemStatus `json:"status"`
	ModifiedAt *time.Time            `json:"modified_at"`
}

// WorkItemResponse represents a work item.
type WorkItemResponse struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	WorkType          domain.WorkType       `json:"work_type"`
	Status            domain.WorkItemStatus `json:"status"`
	Priority          domain.Priority       `json:"priority"`
	SLATargetMinutes  *int                  `json:"sla_target_minutes"`
	BusinessServiceID *string               `json:"business_service_id"`
	AssetID           *string               `json:"asset_id"`
	AssigneeUserID    *string               `json:"assignee_user_id"`
	AssigneeTeamID    *string               `json:"assignee_team_id"`
	CreatedAt         time.Time             `json:"created_at"`
	ModifiedAt        time.Time             `json:"modified_at"`
}

// ScoredWorkItemResponse is a work item with its smart score.
type ScoredWorkItemResponse struct {
	WorkItemResponse
	SmartScore     int                 `json:"smart_score"`
	ScoreBreakdown itsm.ScoreBreakdown `json:"score_breakdown"`
}

// SLATargetResponse payload.
type SLATargetResponse struct {
	SLAMinutes *int `json:"sla_minutes"`
}

// EscalationResponse payload.
type EscalationResponse struct {
	EscalationTarget *string `json:"escalation_target"`
}

// EligibleRulesResponse payload.
type EligibleRulesResponse struct {
	EligibleRules []string `json:"eligible_rules"`
}

// WorkItemRef is a minimal work item reference.
type WorkItemRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EligibleWorkItemsResponse payload.
type EligibleWorkItemsResponse struct {
	EligibleWorkItems []WorkItemRef `json:"eligible_workitems"`
}

// ExecuteRuleRequest payload.
type ExecuteRuleRequest struct {
	WorkItemID string `json:"work_item_id"`
}

// ExecutionResponse reports a rule run.
type ExecutionResponse struct {
	LogID                string            `json:"log_id"`
	RuleID               string            `json:"rule_id"`
	WorkItemID           string            `json:"work_item_id"`
	Status               string            `json:"status"`
	ExecutionTimeSeconds float64           `json:"execution_time"`
	Steps                []itsm.StepResult `json:"steps"`
}
