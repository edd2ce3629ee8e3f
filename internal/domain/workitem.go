package domain

import "time"

// WorkType enumerates the kinds of trackable operational work.
type WorkType string

const (
	WorkTypeIncident WorkType = "incident"
	WorkTypeRequest  WorkType = "request"
	WorkTypeProblem  WorkType = "problem"
)

// Valid reports whether the work type is one of the known kinds.
func (w WorkType) Valid() bool {
	switch w {
	case WorkTypeIncident, WorkTypeRequest, WorkTypeProblem:
		return true
	}
	return false
}

// WorkItemStatus is a lifecycle state; the allowed set depends on the work type.
type WorkItemStatus string

const (
	StatusNew        WorkItemStatus = "new"
	StatusInProgress WorkItemStatus = "in_progress"
	StatusAnalysis   WorkItemStatus = "analysis"
	StatusResolved   WorkItemStatus = "resolved"
	StatusFulfilled  WorkItemStatus = "fulfilled"
	StatusClosed     WorkItemStatus = "closed"
)

// OpenStatuses are the states swept by the SLA check.
var OpenStatuses = []WorkItemStatus{StatusNew, StatusInProgress}

// Priority enumerates urgency levels. Unknown values are kept as-is.
type Priority string

const (
	Priority1 Priority = "priority_1"
	Priority2 Priority = "priority_2"
	Priority3 Priority = "priority_3"
	Priority4 Priority = "priority_4"
)

// WorkItem is an incident, request or problem record.
type WorkItem struct {
	ID                string
	Title             string
	Description       string
	WorkType          WorkType
	Status            WorkItemStatus
	Priority          Priority
	SLATargetMinutes  *int
	BusinessServiceID *string
	AssetID           *string
	AssigneeUserID    *string
	AssigneeTeamID    *string
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// IsOpen reports whether the item is still awaiting resolution.
func (w *WorkItem) IsOpen() bool {
	for _, s := range OpenStatuses {
		if w.Status == s {
			return true
		}
	}
	return false
}
