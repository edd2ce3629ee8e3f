package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkItemCreated       EventType = "work_item_created"
	EventWorkItemStatusChanged EventType = "work_item_status_changed"
	EventSLABreached           EventType = "sla_breached"
	EventEscalationRequested   EventType = "escalation_requested"
	EventCertificateExpired    EventType = "certificate_expired"
	EventAutomationExecuted    EventType = "automation_executed"
)

// ActorType says who caused an event.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   ActorType `json:"type"`
	UserID *string   `json:"user_id,omitempty"`
}

// SystemActor is the actor for scheduled jobs.
var SystemActor = Actor{Type: ActorSystem}

// UserActor builds an actor for an authenticated operator.
func UserActor(userID string) Actor {
	return Actor{Type: ActorUser, UserID: &userID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	WorkItemID string    `json:"work_item_id,omitempty"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// New stamps an event with a fresh id and the given time.
func New(eventType EventType, workItemID string, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkItemID: workItemID,
		Actor:      actor,
		Timestamp:  at,
		Payload:    payload,
	}
}

// WorkItemCreatedPayload payload.
type WorkItemCreatedPayload struct {
	WorkType         domain.WorkType `json:"work_type"`
	Priority         domain.Priority `json:"priority"`
	Title            string          `json:"title"`
	SLATargetMinutes *int            `json:"sla_target_minutes,omitempty"`
}

// WorkItemStatusChangedPayload payload.
type WorkItemStatusChangedPayload struct {
	OldStatus domain.WorkItemStatus `json:"old_status"`
	NewStatus domain.WorkItemStatus `json:"new_status"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Title            string          `json:"title"`
	Priority         domain.Priority `json:"priority"`
	ElapsedMinutes   float64         `json:"elapsed_minutes"`
	EscalationTarget *string         `json:"escalation_target"`
}

// EscalationRequestedPayload carries a raw "team:<ref>" or "user:<ref>" target.
type EscalationRequestedPayload struct {
	Target string `json:"escalation_target"`
}

// CertificateExpiredPayload payload.
type CertificateExpiredPayload struct {
	AssetID         string `json:"asset"`
	AssetName       string `json:"asset_name"`
	CertificateID   string `json:"certificate_id"`
	CertificateType string `json:"certificate"`
}

// AutomationExecutedPayload payload.
type AutomationExecutedPayload struct {
	RuleID string `json:"rule_id"`
	LogID  string `json:"log_id"`
	Status string `json:"status"`
}
