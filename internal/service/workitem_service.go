package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// WorkItemService coordinates work item workflows and the queue view.
type WorkItemService struct {
	items        repository.WorkItemRepository
	services     repository.BusinessServiceRepository
	automation   *AutomationService
	rules        *itsm.Rules
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	impactWindow float64
	now          Clock
}

// WorkItemDependencies bundles collaborators for the work item service.
type WorkItemDependencies struct {
	WorkItemRepo        repository.WorkItemRepository
	BusinessServiceRepo repository.BusinessServiceRepository
	Automation          *AutomationService
	Rules               *itsm.Rules
	Dispatcher          events.Dispatcher
	Logger              *zap.Logger
	ImpactWindowMinutes int
	Clock               Clock
}

// WorkItemCreateInput describes work item creation payload.
type WorkItemCreateInput struct {
	Title             string
	Description       string
	WorkType          domain.WorkType
	Priority          domain.Priority
	SLATargetMinutes  *int
	BusinessServiceID *string
	AssetID           *string
	AssigneeUserID    *string
	AssigneeTeamID    *string
}

// ScoredWorkItem pairs a work item with its smart score.
type ScoredWorkItem struct {
	Item      domain.WorkItem
	Score     int
	Breakdown itsm.ScoreBreakdown
}

// NewWorkItemService constructs the service.
func NewWorkItemService(deps WorkItemDependencies) *WorkItemService {
	rules := deps.Rules
	if rules == nil {
		rules = itsm.DefaultRules()
	}
	window := deps.ImpactWindowMinutes
	if window <= 0 {
		window = 60
	}
	return &WorkItemService{
		items:        deps.WorkItemRepo,
		services:     deps.BusinessServiceRepo,
		automation:   deps.Automation,
		rules:        rules,
		dispatcher:   deps.Dispatcher,
		logger:       loggerOrNop(deps.Logger),
		impactWindow: float64(window),
		now:          clockOrNow(deps.Clock),
	}
}

// Create validates and stores a new work item. The SLA target defaults to the
// schema value for its work type and priority.
func (s *WorkItemService) Create(ctx context.Context, actorID string, input WorkItemCreateInput) (*domain.WorkItem, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if !input.WorkType.Valid() {
		return nil, apperrors.NewValidationError("invalid work type", map[string]any{"work_type": input.WorkType})
	}
	if input.Priority == "" {
		return nil, apperrors.NewValidationError("priority is required", nil)
	}
	if input.SLATargetMinutes != nil && *input.SLATargetMinutes < 0 {
		return nil, apperrors.NewValidationError("sla target must not be negative", nil)
	}

	item := &domain.WorkItem{
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		WorkType:          input.WorkType,
		Status:            domain.StatusNew,
		Priority:          input.Priority,
		SLATargetMinutes:  input.SLATargetMinutes,
		BusinessServiceID: input.BusinessServiceID,
		AssetID:           input.AssetID,
		AssigneeUserID:    input.AssigneeUserID,
		AssigneeTeamID:    input.AssigneeTeamID,
	}
	if item.SLATargetMinutes == nil {
		if minutes, ok := s.rules.Schema.SLATarget(item.WorkType, item.Priority); ok {
			item.SLATargetMinutes = &minutes
		}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventWorkItemCreated, item.ID, actorFor(actorID), s.now(),
		events.WorkItemCreatedPayload{
			WorkType:         item.WorkType,
			Priority:         item.Priority,
			Title:            item.Title,
			SLATargetMinutes: item.SLATargetMinutes,
		}))
	return item, nil
}

// Get fetches a work item.
func (s *WorkItemService) Get(ctx context.Context, id string) (*domain.WorkItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError("work item", id, err)
	}
	return item, nil
}

// List returns work items matching filter.
func (s *WorkItemService) List(ctx context.Context, filter repository.WorkItemFilter) ([]domain.WorkItem, error) {
	items, err := s.items.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UpdateStatus moves a work item to status. The status is checked against
// the work type's allowed set before anything is written. expectedModifiedAt,
// when given, must match the stored row.
func (s *WorkItemService) UpdateStatus(ctx context.Context, actorID, id string, status domain.WorkItemStatus, expectedModifiedAt *time.Time) (*domain.WorkItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.rules.Schema.ValidateStatus(item.WorkType, status) {
		return nil, apperrors.NewValidationError("invalid status for work type", map[string]any{
			"work_type": item.WorkType,
			"status":    status,
			"allowed":   s.rules.Schema.Statuses(item.WorkType),
		})
	}
	expected := item.ModifiedAt
	if expectedModifiedAt != nil {
		expected = *expectedModifiedAt
	}

	old := item.Status
	if err := s.items.UpdateStatus(ctx, item, status, expected); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, apperrors.NewConflict("work item was modified concurrently", map[string]any{"id": id})
		}
		return nil, lookupError("work item", id, err)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventWorkItemStatusChanged, item.ID, actorFor(actorID), s.now(),
		events.WorkItemStatusChangedPayload{OldStatus: old, NewStatus: status}))
	return item, nil
}

// SLATarget returns the schema target minutes for the item, nil when the
// schema has none.
func (s *WorkItemService) SLATarget(ctx context.Context, id string) (*int, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	minutes, ok := s.rules.Schema.SLATarget(item.WorkType, item.Priority)
	if !ok {
		return nil, nil
	}
	return &minutes, nil
}

// Impact estimates revenue lost over the configured impact window.
func (s *WorkItemService) Impact(ctx context.Context, id string) (itsm.Impact, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return itsm.Impact{}, err
	}
	svc, err := s.businessService(ctx, item)
	if err != nil {
		return itsm.Impact{}, err
	}
	return itsm.CalculateBusinessImpact(svc, s.impactWindow), nil
}

// Escalation returns the target the item would escalate to given the time
// between its creation and last modification.
func (s *WorkItemService) Escalation(ctx context.Context, id string) (*itsm.Target, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CreatedAt.IsZero() || item.ModifiedAt.IsZero() {
		return nil, nil
	}
	elapsed := item.ModifiedAt.Sub(item.CreatedAt).Minutes()
	target, ok := s.rules.Escalation.Target(item.Priority, item.WorkType, elapsed)
	if !ok {
		return nil, nil
	}
	return &target, nil
}

// EligibleRuleIDs lists the automation rules that would fire on the item.
func (s *WorkItemService) EligibleRuleIDs(ctx context.Context, id string) ([]string, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	if s.automation == nil {
		return ids, nil
	}
	rules, err := s.automation.EligibleRules(ctx, item)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		ids = append(ids, rule.ID)
	}
	return ids, nil
}

// Detail returns a single work item with its smart score for currentUserID.
func (s *WorkItemService) Detail(ctx context.Context, id, currentUserID string) (*ScoredWorkItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	scored, err := s.score(ctx, []domain.WorkItem{*item}, currentUserID)
	if err != nil {
		return nil, err
	}
	return &scored[0], nil
}

// Queue ranks the open work items by smart score, highest first. Ties keep
// the oldest item first. A positive limit truncates the result.
func (s *WorkItemService) Queue(ctx context.Context, currentUserID string, limit int) ([]ScoredWorkItem, error) {
	items, err := s.items.ListOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	scored, err := s.score(ctx, items, currentUserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.CreatedAt.Before(scored[j].Item.CreatedAt)
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *WorkItemService) score(ctx context.Context, items []domain.WorkItem, currentUserID string) ([]ScoredWorkItem, error) {
	serviceIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, item := range items {
		if item.BusinessServiceID == nil {
			continue
		}
		if _, ok := seen[*item.BusinessServiceID]; ok {
			continue
		}
		seen[*item.BusinessServiceID] = struct{}{}
		serviceIDs = append(serviceIDs, *item.BusinessServiceID)
	}
	services, err := s.services.GetByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summaries := map[string]*itsm.AutomationSummary{}
	if s.automation != nil {
		if summaries, err = s.automation.Summaries(ctx, items); err != nil {
			return nil, err
		}
	}

	now := s.now()
	result := make([]ScoredWorkItem, 0, len(items))
	for i := range items {
		item := &items[i]
		var svc *domain.BusinessService
		if item.BusinessServiceID != nil {
			svc = services[*item.BusinessServiceID]
		}
		view := itsm.NewScoreView(item, svc, summaries[item.ID])
		breakdown := itsm.ScoreBreakdownFor(view, currentUserID, now)
		result = append(result, ScoredWorkItem{Item: *item, Score: breakdown.Total(), Breakdown: breakdown})
	}
	return result, nil
}

func (s *WorkItemService) businessService(ctx context.Context, item *domain.WorkItem) (*domain.BusinessService, error) {
	if item.BusinessServiceID == nil {
		return nil, nil
	}
	svc, err := s.services.GetByID(ctx, *item.BusinessServiceID)
	if err != nil {
		return nil, lookupError("business service", *item.BusinessServiceID, err)
	}
	return svc, nil
}
