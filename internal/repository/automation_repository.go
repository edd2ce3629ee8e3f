package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// AutomationRuleRepository loads rules with their conditions and steps and
// records execution history.
type AutomationRuleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.AutomationRule, error)
	ListActive(ctx context.Context) ([]domain.AutomationRule, error)
	CreateLog(ctx context.Context, entry *domain.AutomationExecutionLog) error
	// RunStats aggregates execution logs per rule id.
	RunStats(ctx context.Context, ruleIDs []string) (map[string]domain.RuleRunStats, error)
}

type automationRuleRepository struct {
	pool *pgxpool.Pool
}

// NewAutomationRuleRepository constructs repository.
func NewAutomationRuleRepository(pool *pgxpool.Pool) AutomationRuleRepository {
	return &automationRuleRepository{pool: pool}
}

func (r *automationRuleRepository) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	const query = `
        SELECT id, name, automation_type, status, created_at, modified_at
        FROM automation_rules WHERE id=$1`
	var rule domain.AutomationRule
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID, &rule.Name, &rule.AutomationType, &rule.Status, &rule.CreatedAt, &rule.ModifiedAt,
	); err != nil {
		return nil, err
	}
	rules := []domain.AutomationRule{rule}
	if err := r.attachDetails(ctx, rules); err != nil {
		return nil, err
	}
	return &rules[0], nil
}

func (r *automationRuleRepository) ListActive(ctx context.Context) ([]domain.AutomationRule, error) {
	const query = `
        SELECT id, name, automation_type, status, created_at, modified_at
        FROM automation_rules WHERE status='active'
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AutomationRule
	for rows.Next() {
		var rule domain.AutomationRule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.AutomationType, &rule.Status, &rule.CreatedAt, &rule.ModifiedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.attachDetails(ctx, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *automationRuleRepository) attachDetails(ctx context.Context, rules []domain.AutomationRule) error {
	if len(rules) == 0 {
		return nil
	}
	index := make(map[string]int, len(rules))
	ids := make([]string, len(rules))
	for i, rule := range rules {
		index[rule.ID] = i
		ids[i] = rule.ID
	}

	const conditionQuery = `
        SELECT id, rule_id, work_types, asset_types, keywords
        FROM automation_trigger_conditions WHERE rule_id = ANY($1::uuid[])
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, conditionQuery, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			cond      domain.TriggerCondition
			ruleID    string
			workTypes []string
		)
		if err := rows.Scan(&cond.ID, &ruleID, &workTypes, &cond.AssetTypes, &cond.Keywords); err != nil {
			rows.Close()
			return err
		}
		for _, wt := range workTypes {
			cond.WorkTypes = append(cond.WorkTypes, domain.WorkType(wt))
		}
		i := index[ruleID]
		rules[i].TriggerConditions = append(rules[i].TriggerConditions, cond)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const stepQuery = `
        SELECT id, rule_id, step_order, action, params
        FROM automation_execution_steps WHERE rule_id = ANY($1::uuid[])
        ORDER BY step_order ASC, id ASC`
	rows, err = r.pool.Query(ctx, stepQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			step   domain.ExecutionStep
			ruleID string
		)
		if err := rows.Scan(&step.ID, &ruleID, &step.Order, &step.Action, &step.Params); err != nil {
			return err
		}
		i := index[ruleID]
		rules[i].ExecutionSteps = append(rules[i].ExecutionSteps, step)
	}
	return rows.Err()
}

func (r *automationRuleRepository) CreateLog(ctx context.Context, entry *domain.AutomationExecutionLog) error {
	const query = `
        INSERT INTO automation_execution_logs (id, rule_id, work_item_id, status, execution_time, result)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.RuleID,
		entry.WorkItemID,
		entry.Status,
		entry.ExecutionTimeSeconds,
		entry.Result,
	).Scan(&entry.CreatedAt)
}

func (r *automationRuleRepository) RunStats(ctx context.Context, ruleIDs []string) (map[string]domain.RuleRunStats, error) {
	result := make(map[string]domain.RuleRunStats, len(ruleIDs))
	if len(ruleIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT rule_id, COUNT(*), COUNT(*) FILTER (WHERE status='success')
        FROM automation_execution_logs
        WHERE rule_id = ANY($1::uuid[])
        GROUP BY rule_id`
	rows, err := r.pool.Query(ctx, query, ruleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var stats domain.RuleRunStats
		if err := rows.Scan(&stats.RuleID, &stats.Total, &stats.Succeeded); err != nil {
			return nil, err
		}
		result[stats.RuleID] = stats
	}
	return result, rows.Err()
}

