package itsm

import (
	"fmt"
	"strings"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// TargetKind is the recipient class of an escalation.
type TargetKind string

const (
	TargetTeam TargetKind = "team"
	TargetUser TargetKind = "user"
)

// Target identifies who gets notified, formatted "team:<name>" or "user:<id>".
type Target string

// ParseTarget validates the "<kind>:<ref>" form.
func ParseTarget(raw string) (Target, error) {
	kind, ref, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("malformed escalation target %q", raw)
	}
	switch TargetKind(kind) {
	case TargetTeam, TargetUser:
		return Target(raw), nil
	}
	return "", fmt.Errorf("unknown escalation target kind %q", kind)
}

// Kind returns the part before the colon.
func (t Target) Kind() TargetKind {
	kind, _, _ := strings.Cut(string(t), ":")
	return TargetKind(kind)
}

// Ref returns the team name or user id.
func (t Target) Ref() string {
	_, ref, _ := strings.Cut(string(t), ":")
	return ref
}

// EscalationRule fires once elapsed minutes strictly exceed ThresholdMinutes.
type EscalationRule struct {
	ThresholdMinutes int    `yaml:"threshold_minutes"`
	Target           Target `yaml:"target"`
}

// EscalationMatrix maps priorities to escalation rules. Read-only after construction.
type EscalationMatrix struct {
	rules map[domain.Priority]EscalationRule
}

// NewEscalationMatrix validates and copies rules.
func NewEscalationMatrix(rules map[domain.Priority]EscalationRule) (*EscalationMatrix, error) {
	m := &EscalationMatrix{rules: make(map[domain.Priority]EscalationRule, len(rules))}
	for p, rule := range rules {
		if rule.ThresholdMinutes < 0 {
			return nil, fmt.Errorf("priority %s: negative threshold %d", p, rule.ThresholdMinutes)
		}
		if _, err := ParseTarget(string(rule.Target)); err != nil {
			return nil, fmt.Errorf("priority %s: %w", p, err)
		}
		m.rules[p] = rule
	}
	return m, nil
}

// DefaultEscalationRules returns the built-in matrix. priority_4 never escalates.
func DefaultEscalationRules() map[domain.Priority]EscalationRule {
	return map[domain.Priority]EscalationRule{
		domain.Priority1: {ThresholdMinutes: 60, Target: "team:incident_managers"},
		domain.Priority2: {ThresholdMinutes: 180, Target: "team:service_desk"},
		domain.Priority3: {ThresholdMinutes: 360, Target: "team:operations"},
	}
}

// Rule returns the configured rule for a priority.
func (m *EscalationMatrix) Rule(priority domain.Priority) (EscalationRule, bool) {
	if m == nil {
		return EscalationRule{}, false
	}
	rule, ok := m.rules[priority]
	return rule, ok
}

// Target resolves who to escalate to after elapsedMinutes. workType is
// accepted for a per-type policy but does not influence the result yet.
func (m *EscalationMatrix) Target(priority domain.Priority, workType domain.WorkType, elapsedMinutes float64) (Target, bool) {
	rule, ok := m.Rule(priority)
	if !ok || elapsedMinutes <= float64(rule.ThresholdMinutes) {
		return "", false
	}
	return rule.Target, true
}
