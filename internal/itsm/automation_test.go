package itsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-service/internal/domain"
)

func TestIsEligible(t *testing.T) {
	item := &domain.WorkItem{
		ID:          "wi-1",
		Title:       "Disk full",
		Description: "on db01 the /var partition is at 100%",
		WorkType:    domain.WorkTypeIncident,
	}
	server := &domain.Asset{ID: "a-1", AssetType: "server"}

	tests := []struct {
		name  string
		asset *domain.Asset
		conds []domain.TriggerCondition
		want  bool
	}{
		{"no conditions", nil, nil, true},
		{"empty condition", nil, []domain.TriggerCondition{{}}, true},
		{"work type match", nil, []domain.TriggerCondition{{WorkTypes: []domain.WorkType{domain.WorkTypeIncident}}}, true},
		{"work type mismatch", nil, []domain.TriggerCondition{{WorkTypes: []domain.WorkType{domain.WorkTypeRequest}}}, false},
		{"asset type without asset", nil, []domain.TriggerCondition{{AssetTypes: []string{"server"}}}, false},
		{"asset type match", server, []domain.TriggerCondition{{AssetTypes: []string{"server", "vm"}}}, true},
		{"asset type mismatch", &domain.Asset{AssetType: "switch"}, []domain.TriggerCondition{{AssetTypes: []string{"server"}}}, false},
		{"keyword in title case-insensitive", nil, []domain.TriggerCondition{{Keywords: []string{"DISK"}}}, true},
		{"keyword in description", nil, []domain.TriggerCondition{{Keywords: []string{"partition"}}}, true},
		{"keyword spans title and description", nil, []domain.TriggerCondition{{Keywords: []string{"fullon"}}}, true},
		{"no keyword matches", nil, []domain.TriggerCondition{{Keywords: []string{"memory", "cpu"}}}, false},
		{"all fields in one condition", server, []domain.TriggerCondition{{
			WorkTypes:  []domain.WorkType{domain.WorkTypeIncident},
			AssetTypes: []string{"server"},
			Keywords:   []string{"disk"},
		}}, true},
		{"AND across conditions", server, []domain.TriggerCondition{
			{WorkTypes: []domain.WorkType{domain.WorkTypeIncident}},
			{Keywords: []string{"network"}},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &domain.AutomationRule{ID: "r-1", TriggerConditions: tt.conds}
			assert.Equal(t, tt.want, IsEligible(item, tt.asset, rule))
		})
	}
}

func TestIsEligibleEmptyConditionsIgnoreContent(t *testing.T) {
	rule := &domain.AutomationRule{TriggerConditions: []domain.TriggerCondition{{}, {}}}
	for _, item := range []*domain.WorkItem{
		{},
		{WorkType: "other", Title: "x"},
		{WorkType: domain.WorkTypeProblem, Description: "anything"},
	} {
		assert.True(t, IsEligible(item, nil, rule))
	}
	assert.False(t, IsEligible(nil, nil, rule))
}

type recordingExecutor struct {
	actions []string
	failOn  string
}

func (r *recordingExecutor) Execute(_ context.Context, step domain.ExecutionStep, _ *domain.WorkItem) error {
	r.actions = append(r.actions, step.Action)
	if step.Action == r.failOn {
		return errors.New("boom")
	}
	return nil
}

func TestRunExecutionStepsOrdersByOrder(t *testing.T) {
	rule := &domain.AutomationRule{ExecutionSteps: []domain.ExecutionStep{
		{Order: 3, Action: "notify"},
		{Order: 1, Action: "restart_service", Params: map[string]any{"service": "nginx"}},
		{Order: 2, Action: "clear_cache"},
	}}
	exec := &recordingExecutor{failOn: "clear_cache"}

	results := RunExecutionSteps(context.Background(), exec, rule, &domain.WorkItem{ID: "wi"})

	require.Len(t, results, 3)
	assert.Equal(t, []string{"restart_service", "clear_cache", "notify"}, exec.actions)
	assert.Equal(t, StepResult{Action: "restart_service", Params: map[string]any{"service": "nginx"}, Status: StepSucceeded}, results[0])
	assert.Equal(t, StepFailed, results[1].Status)
	assert.Equal(t, StepSucceeded, results[2].Status)
	assert.Equal(t, "notify", rule.ExecutionSteps[0].Action, "rule steps are not reordered in place")
}

func TestRunExecutionStepsNilRule(t *testing.T) {
	assert.Empty(t, RunExecutionSteps(context.Background(), nil, nil, nil))
}
