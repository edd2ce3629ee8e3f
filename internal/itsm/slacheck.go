package itsm

import (
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// BreachAlert reports an open work item past its SLA target.
type BreachAlert struct {
	WorkItemID       string          `json:"work_item_id"`
	Title            string          `json:"title"`
	Priority         domain.Priority `json:"priority"`
	EscalationTarget *Target         `json:"escalation_target"`
	ElapsedMinutes   float64         `json:"elapsed_minutes"`
}

// SweepBreaches returns one alert per open item whose elapsed time since
// creation exceeds its SLA target, in input order. Items with no creation
// time or no SLA target are skipped.
func SweepBreaches(items []domain.WorkItem, matrix *EscalationMatrix, now time.Time) []BreachAlert {
	alerts := make([]BreachAlert, 0)
	for i := range items {
		item := &items[i]
		if !item.IsOpen() || item.CreatedAt.IsZero() || item.SLATargetMinutes == nil {
			continue
		}
		elapsed := now.Sub(item.CreatedAt).Minutes()
		if elapsed <= float64(*item.SLATargetMinutes) {
			continue
		}
		alert := BreachAlert{
			WorkItemID:     item.ID,
			Title:          item.Title,
			Priority:       item.Priority,
			ElapsedMinutes: elapsed,
		}
		if target, ok := matrix.Target(item.Priority, item.WorkType, elapsed); ok {
			alert.EscalationTarget = &target
		}
		alerts = append(alerts, alert)
	}
	return alerts
}
