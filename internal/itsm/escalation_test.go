package itsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsm-service/internal/domain"
)

func TestEscalationTargetThresholds(t *testing.T) {
	matrix := DefaultRules().Escalation

	tests := []struct {
		name     string
		priority domain.Priority
		elapsed  float64
		want     Target
		ok       bool
	}{
		{"p1 past threshold", domain.Priority1, 61, "team:incident_managers", true},
		{"p1 at threshold", domain.Priority1, 60, "", false},
		{"p1 below threshold", domain.Priority1, 59, "", false},
		{"p1 just past threshold", domain.Priority1, 60.01, "team:incident_managers", true},
		{"p2 past threshold", domain.Priority2, 181, "team:service_desk", true},
		{"p2 at threshold", domain.Priority2, 180, "", false},
		{"p3 past threshold", domain.Priority3, 361, "team:operations", true},
		{"p4 never escalates", domain.Priority4, 100000, "", false},
		{"unknown priority", "urgent", 100000, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matrix.Target(tt.priority, domain.WorkTypeIncident, tt.elapsed)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscalationIgnoresWorkType(t *testing.T) {
	matrix := DefaultRules().Escalation
	for _, wt := range []domain.WorkType{domain.WorkTypeIncident, domain.WorkTypeRequest, domain.WorkTypeProblem, "other"} {
		got, ok := matrix.Target(domain.Priority2, wt, 200)
		require.True(t, ok)
		assert.Equal(t, Target("team:service_desk"), got)
	}
}

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("team:operations")
	require.NoError(t, err)
	assert.Equal(t, TargetTeam, target.Kind())
	assert.Equal(t, "operations", target.Ref())

	target, err = ParseTarget("user:7f3c")
	require.NoError(t, err)
	assert.Equal(t, TargetUser, target.Kind())

	for _, raw := range []string{"", "operations", "team:", "group:ops"} {
		_, err := ParseTarget(raw)
		assert.Error(t, err, raw)
	}
}

func TestNilMatrixNeverEscalates(t *testing.T) {
	var matrix *EscalationMatrix
	_, ok := matrix.Target(domain.Priority1, domain.WorkTypeIncident, 1000)
	assert.False(t, ok)
}
