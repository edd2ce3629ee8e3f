package domain

import "time"

// AutomationType distinguishes what a rule does when it fires.
type AutomationType string

const (
	AutomationRemediation  AutomationType = "remediation"
	AutomationNotification AutomationType = "notification"
)

// AutomationRule groups trigger conditions with the steps to run when they match.
type AutomationRule struct {
	ID                string
	Name              string
	AutomationType    AutomationType
	Status            string
	TriggerConditions []TriggerCondition
	ExecutionSteps    []ExecutionStep
	CreatedAt         time.Time
	ModifiedAt        time.Time
}

// Active reports whether the rule should be considered at all.
func (r *AutomationRule) Active() bool {
	return r.Status == "" || r.Status == "active"
}

// TriggerCondition is a predicate set; empty slices impose no constraint.
type TriggerCondition struct {
	ID         string
	WorkTypes  []WorkType
	AssetTypes []string
	Keywords   []string
}

// ExecutionStep is a single action of a rule, run in Order.
type ExecutionStep struct {
	ID     string
	Order  int
	Action string
	Params map[string]any
}

// AutomationExecutionLog records one run of a rule against a work item.
type AutomationExecutionLog struct {
	ID                   string
	RuleID               string
	WorkItemID           string
	Status               string
	ExecutionTimeSeconds float64
	Result               map[string]any
	CreatedAt            time.Time
}

// RuleRunStats aggregates past executions of a rule.
type RuleRunStats struct {
	RuleID    string
	Total     int
	Succeeded int
}

// SuccessRate returns the percentage of successful runs, 0 when never run.
func (s RuleRunStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Succeeded) / float64(s.Total)
}
