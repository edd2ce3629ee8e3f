package itsm

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// Step outcome values.
const (
	StepSucceeded = "success"
	StepFailed    = "failed"
)

// IsEligible reports whether item satisfies every trigger condition of rule.
// asset is the item's linked asset, nil when it has none. A rule without
// conditions matches everything.
func IsEligible(item *domain.WorkItem, asset *domain.Asset, rule *domain.AutomationRule) bool {
	if item == nil || rule == nil {
		return false
	}
	for _, cond := range rule.TriggerConditions {
		if !conditionHolds(item, asset, cond) {
			return false
		}
	}
	return true
}

func conditionHolds(item *domain.WorkItem, asset *domain.Asset, cond domain.TriggerCondition) bool {
	if len(cond.WorkTypes) > 0 && !containsWorkType(cond.WorkTypes, item.WorkType) {
		return false
	}
	if len(cond.AssetTypes) > 0 {
		if asset == nil || !containsString(cond.AssetTypes, asset.AssetType) {
			return false
		}
	}
	if len(cond.Keywords) > 0 {
		text := strings.ToLower(item.Title + item.Description)
		matched := false
		for _, kw := range cond.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func containsWorkType(set []domain.WorkType, wt domain.WorkType) bool {
	for _, v := range set {
		if v == wt {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// StepExecutor carries out a single automation action.
type StepExecutor interface {
	Execute(ctx context.Context, step domain.ExecutionStep, item *domain.WorkItem) error
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Status string         `json:"status"`
}

// RunExecutionSteps runs the rule's steps in ascending Order and reports each
// outcome. A failing step does not stop later ones.
func RunExecutionSteps(ctx context.Context, exec StepExecutor, rule *domain.AutomationRule, item *domain.WorkItem) []StepResult {
	if rule == nil {
		return nil
	}
	steps := append([]domain.ExecutionStep(nil), rule.ExecutionSteps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		status := StepSucceeded
		if exec != nil {
			if err := exec.Execute(ctx, step, item); err != nil {
				status = StepFailed
			}
		}
		results = append(results, StepResult{Action: step.Action, Params: step.Params, Status: status})
	}
	return results
}
