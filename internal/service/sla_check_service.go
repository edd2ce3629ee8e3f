package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

var errNoEscalator = errors.New("no escalation notifier configured")

// Escalator delivers an escalation notice.
type Escalator interface {
	NotifyEscalation(ctx context.Context, workItemID string, target itsm.Target) (*EscalationNotice, error)
}

// SLACheckService sweeps open work items for SLA breaches.
type SLACheckService struct {
	items      repository.WorkItemRepository
	rules      *itsm.Rules
	escalator  Escalator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// SLACheckDependencies bundles collaborators.
type SLACheckDependencies struct {
	WorkItemRepo repository.WorkItemRepository
	Rules        *itsm.Rules
	Escalator    Escalator
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// NewSLACheckService constructs the service.
func NewSLACheckService(deps SLACheckDependencies) *SLACheckService {
	rules := deps.Rules
	if rules == nil {
		rules = itsm.DefaultRules()
	}
	return &SLACheckService{
		items:      deps.WorkItemRepo,
		rules:      rules,
		escalator:  deps.Escalator,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Run returns one alert per breached open item. Alerts carrying a target are
// handed to the escalation listeners. Re-running with the same data yields
// the same alerts, so notifications may repeat.
func (s *SLACheckService) Run(ctx context.Context) ([]itsm.BreachAlert, error) {
	items, err := s.items.ListOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	alerts := itsm.SweepBreaches(items, s.rules.Escalation, now)

	for _, alert := range alerts {
		s.metrics.RecordBreach(string(alert.Priority))
		payload := events.SLABreachedPayload{
			Title:          alert.Title,
			Priority:       alert.Priority,
			ElapsedMinutes: alert.ElapsedMinutes,
		}
		if alert.EscalationTarget != nil {
			target := string(*alert.EscalationTarget)
			payload.EscalationTarget = &target
		}
		publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventSLABreached, alert.WorkItemID, events.SystemActor, now, payload))
		if payload.EscalationTarget != nil {
			publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventEscalationRequested, alert.WorkItemID, events.SystemActor, now,
				events.EscalationRequestedPayload{Target: *payload.EscalationTarget}))
		}
	}
	s.logger.Info("sla check finished", zap.Int("open_items", len(items)), zap.Int("breaches", len(alerts)))
	return alerts, nil
}

// Escalate notifies target about the work item right away.
func (s *SLACheckService) Escalate(ctx context.Context, workItemID, rawTarget string) (*EscalationNotice, error) {
	target, err := itsm.ParseTarget(rawTarget)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"escalation_target": rawTarget})
	}
	if _, err := s.items.GetByID(ctx, workItemID); err != nil {
		return nil, lookupError("work item", workItemID, err)
	}
	if s.escalator == nil {
		return nil, apperrors.NewInternalError(errNoEscalator)
	}
	notice, err := s.escalator.NotifyEscalation(ctx, workItemID, target)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notice, nil
}
