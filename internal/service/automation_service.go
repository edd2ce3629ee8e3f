package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/repository"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// Execution log statuses.
const (
	ExecutionSucceeded = "success"
	ExecutionFailed    = "failed"
)

// AutomationService evaluates automation rules against work items.
type AutomationService struct {
	rules      repository.AutomationRuleRepository
	items      repository.WorkItemRepository
	assets     repository.AssetRepository
	executor   itsm.StepExecutor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// AutomationDependencies bundles collaborators.
type AutomationDependencies struct {
	RuleRepo     repository.AutomationRuleRepository
	WorkItemRepo repository.WorkItemRepository
	AssetRepo    repository.AssetRepository
	Executor     itsm.StepExecutor
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        Clock
}

// NewAutomationService creates the service. Without an executor steps are
// only logged.
func NewAutomationService(deps AutomationDependencies) *AutomationService {
	logger := loggerOrNop(deps.Logger)
	executor := deps.Executor
	if executor == nil {
		executor = NewLogOnlyExecutor(logger)
	}
	return &AutomationService{
		rules:      deps.RuleRepo,
		items:      deps.WorkItemRepo,
		assets:     deps.AssetRepo,
		executor:   executor,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clockOrNow(deps.Clock),
	}
}

// EligibleRules returns the active rules whose trigger conditions hold for item.
func (s *AutomationService) EligibleRules(ctx context.Context, item *domain.WorkItem) ([]domain.AutomationRule, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	asset, err := s.assetFor(ctx, item)
	if err != nil {
		return nil, err
	}
	eligible := make([]domain.AutomationRule, 0)
	for i := range rules {
		if itsm.IsEligible(item, asset, &rules[i]) {
			eligible = append(eligible, rules[i])
		}
	}
	return eligible, nil
}

// EligibleWorkItems returns every work item the rule would fire on.
func (s *AutomationService) EligibleWorkItems(ctx context.Context, ruleID string) ([]domain.WorkItem, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, lookupError("automation rule", ruleID, err)
	}
	items, err := s.items.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assets, err := s.assets.GetByIDs(ctx, assetIDs(items))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	eligible := make([]domain.WorkItem, 0)
	for i := range items {
		var asset *domain.Asset
		if items[i].AssetID != nil {
			asset = assets[*items[i].AssetID]
		}
		if itsm.IsEligible(&items[i], asset, rule) {
			eligible = append(eligible, items[i])
		}
	}
	return eligible, nil
}

// Summaries derives the automation component of the smart score for each item.
// Items with no eligible rule get no entry. The success rate is the best one
// among the eligible rules; an item is auto-executable when an eligible rule
// is a remediation.
func (s *AutomationService) Summaries(ctx context.Context, items []domain.WorkItem) (map[string]*itsm.AutomationSummary, error) {
	result := make(map[string]*itsm.AutomationSummary, len(items))
	if len(items) == 0 {
		return result, nil
	}
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(rules) == 0 {
		return result, nil
	}
	ruleIDs := make([]string, len(rules))
	for i, rule := range rules {
		ruleIDs[i] = rule.ID
	}
	stats, err := s.rules.RunStats(ctx, ruleIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assets, err := s.assets.GetByIDs(ctx, assetIDs(items))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for i := range items {
		item := &items[i]
		var asset *domain.Asset
		if item.AssetID != nil {
			asset = assets[*item.AssetID]
		}
		var summary *itsm.AutomationSummary
		for j := range rules {
			if !itsm.IsEligible(item, asset, &rules[j]) {
				continue
			}
			if summary == nil {
				summary = &itsm.AutomationSummary{Eligible: true}
			}
			if rate := stats[rules[j].ID].SuccessRate(); rate > summary.SuccessRate {
				summary.SuccessRate = rate
			}
			if rules[j].AutomationType == domain.AutomationRemediation {
				summary.AutoExecutable = true
			}
		}
		if summary != nil {
			result[item.ID] = summary
		}
	}
	return result, nil
}

// ExecutionResult is the outcome of running a rule against a work item.
type ExecutionResult struct {
	Log   *domain.AutomationExecutionLog
	Steps []itsm.StepResult
}

// Execute runs the rule's steps against the work item and records the run.
func (s *AutomationService) Execute(ctx context.Context, actorID, ruleID, workItemID string) (*ExecutionResult, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, lookupError("automation rule", ruleID, err)
	}
	if !rule.Active() {
		return nil, apperrors.NewValidationError("automation rule is not active", map[string]any{"rule_id": ruleID})
	}
	item, err := s.items.GetByID(ctx, workItemID)
	if err != nil {
		return nil, lookupError("work item", workItemID, err)
	}
	asset, err := s.assetFor(ctx, item)
	if err != nil {
		return nil, err
	}
	if !itsm.IsEligible(item, asset, rule) {
		return nil, apperrors.NewValidationError("work item does not match rule conditions", map[string]any{
			"rule_id":      ruleID,
			"work_item_id": workItemID,
		})
	}

	started := s.now()
	steps := itsm.RunExecutionSteps(ctx, s.executor, rule, item)
	status := ExecutionSucceeded
	for _, step := range steps {
		if step.Status != itsm.StepSucceeded {
			status = ExecutionFailed
			break
		}
	}

	entry := &domain.AutomationExecutionLog{
		ID:                   uuid.NewString(),
		RuleID:               rule.ID,
		WorkItemID:           item.ID,
		Status:               status,
		ExecutionTimeSeconds: s.now().Sub(started).Seconds(),
		Result:               map[string]any{"steps": steps},
	}
	if err := s.rules.CreateLog(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.New(events.EventAutomationExecuted, item.ID, actorFor(actorID), s.now(),
		events.AutomationExecutedPayload{RuleID: rule.ID, LogID: entry.ID, Status: status}))
	return &ExecutionResult{Log: entry, Steps: steps}, nil
}

func (s *AutomationService) assetFor(ctx context.Context, item *domain.WorkItem) (*domain.Asset, error) {
	if item == nil || item.AssetID == nil {
		return nil, nil
	}
	asset, err := s.assets.GetByID(ctx, *item.AssetID)
	if err != nil {
		// a dangling asset reference behaves like no asset
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

func assetIDs(items []domain.WorkItem) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, item := range items {
		if item.AssetID == nil {
			continue
		}
		if _, ok := seen[*item.AssetID]; ok {
			continue
		}
		seen[*item.AssetID] = struct{}{}
		ids = append(ids, *item.AssetID)
	}
	return ids
}

// LogOnlyExecutor records each step in the log without performing it.
type LogOnlyExecutor struct {
	logger *zap.Logger
}

// NewLogOnlyExecutor builds the executor.
func NewLogOnlyExecutor(logger *zap.Logger) *LogOnlyExecutor {
	return &LogOnlyExecutor{logger: loggerOrNop(logger)}
}

// Execute implements itsm.StepExecutor.
func (e *LogOnlyExecutor) Execute(_ context.Context, step domain.ExecutionStep, item *domain.WorkItem) error {
	e.logger.Info("automation step",
		zap.String("action", step.Action),
		zap.Int("order", step.Order),
		zap.String("work_item_id", item.ID),
		zap.Any("params", step.Params))
	return nil
}

var _ itsm.StepExecutor = (*LogOnlyExecutor)(nil)
