package itsm

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/itsm-service/internal/domain"
)

var priorityWeights = map[domain.Priority]int{
	domain.Priority1: 400,
	domain.Priority2: 300,
	domain.Priority3: 200,
	domain.Priority4: 100,
}

const (
	impactPointsPerStep = 50
	impactPointsCap     = 200
)

var (
	revenueStep    = decimal.NewFromInt(100000)
	maxImpactSteps = decimal.NewFromInt(impactPointsCap / impactPointsPerStep)
)

// AutomationSummary describes how well a work item can be automated.
type AutomationSummary struct {
	SuccessRate    float64 `json:"success_rate"`
	AutoExecutable bool    `json:"auto_executable"`
	Eligible       bool    `json:"eligible"`
}

// Assignee identifies who holds a work item. ID is empty when only a team is set.
type Assignee struct {
	ID     string  `json:"id"`
	TeamID *string `json:"team_id,omitempty"`
}

// ScoreView is the input of the smart score. Nil fields contribute nothing.
type ScoreView struct {
	Priority             domain.Priority
	SLATargetMinutes     *int
	CreatedAt            *time.Time
	ModifiedAt           *time.Time
	RevenueImpactPerHour *decimal.Decimal
	Automation           *AutomationSummary
	AssignedTo           *Assignee
}

// NewScoreView assembles a view from stored records. service and automation may be nil.
func NewScoreView(item *domain.WorkItem, service *domain.BusinessService, automation *AutomationSummary) ScoreView {
	view := ScoreView{
		Priority:         item.Priority,
		SLATargetMinutes: item.SLATargetMinutes,
		Automation:       automation,
	}
	if !item.CreatedAt.IsZero() {
		created := item.CreatedAt
		view.CreatedAt = &created
	}
	if !item.ModifiedAt.IsZero() {
		modified := item.ModifiedAt
		view.ModifiedAt = &modified
	}
	if service != nil {
		view.RevenueImpactPerHour = service.RevenueImpactPerHour
	}
	if item.AssigneeUserID != nil || item.AssigneeTeamID != nil {
		a := &Assignee{TeamID: item.AssigneeTeamID}
		if item.AssigneeUserID != nil {
			a.ID = *item.AssigneeUserID
		}
		view.AssignedTo = a
	}
	return view
}

// ScoreBreakdown lists each additive component of a smart score.
type ScoreBreakdown struct {
	Priority       int `json:"priority"`
	SLAUrgency     int `json:"sla_urgency"`
	BusinessImpact int `json:"business_impact"`
	Automation     int `json:"automation"`
	Assignment     int `json:"assignment"`
}

// Total sums the components. No clamping.
func (b ScoreBreakdown) Total() int {
	return b.Priority + b.SLAUrgency + b.BusinessImpact + b.Automation + b.Assignment
}

// SmartScore ranks a work item for the queue view. now stands in for the
// reference time when the item has no modification timestamp.
func SmartScore(view ScoreView, currentUserID string, now time.Time) int {
	return ScoreBreakdownFor(view, currentUserID, now).Total()
}

// ScoreBreakdownFor computes each smart score component.
func ScoreBreakdownFor(view ScoreView, currentUserID string, now time.Time) ScoreBreakdown {
	return ScoreBreakdown{
		Priority:       priorityWeights[view.Priority],
		SLAUrgency:     slaUrgency(view, now),
		BusinessImpact: businessImpactPoints(view.RevenueImpactPerHour),
		Automation:     automationPoints(view.Automation),
		Assignment:     assignmentPoints(view.AssignedTo, currentUserID),
	}
}

func slaUrgency(view ScoreView, now time.Time) int {
	if view.SLATargetMinutes == nil || *view.SLATargetMinutes == 0 || view.CreatedAt == nil {
		return 0
	}
	ref := now
	if view.ModifiedAt != nil {
		ref = *view.ModifiedAt
	}
	elapsed := ref.Sub(*view.CreatedAt).Minutes()
	remaining := float64(*view.SLATargetMinutes) - elapsed

	switch {
	case remaining <= 0:
		return 300
	case remaining <= 15:
		return 250
	case remaining <= 30:
		return 200
	case remaining <= 60:
		return 100
	}
	return 0
}

func businessImpactPoints(revenue *decimal.Decimal) int {
	if revenue == nil || !revenue.IsPositive() {
		return 0
	}
	// clamp in decimal; IntPart overflows for huge rates
	steps := revenue.Div(revenueStep).Floor()
	if steps.GreaterThanOrEqual(maxImpactSteps) {
		return impactPointsCap
	}
	return int(steps.IntPart()) * impactPointsPerStep
}

func automationPoints(a *AutomationSummary) int {
	if a == nil {
		return 0
	}
	if a.SuccessRate > 80 && a.AutoExecutable {
		return 100
	}
	if a.Eligible {
		return 50
	}
	return 0
}

func assignmentPoints(a *Assignee, currentUserID string) int {
	if a == nil {
		return 0
	}
	if currentUserID != "" && a.ID == currentUserID {
		return 75
	}
	if a.TeamID != nil && *a.TeamID != "" {
		return 50
	}
	return 0
}
