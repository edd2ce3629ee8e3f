package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// ErrStaleWrite is returned when a row changed since it was read.
var ErrStaleWrite = errors.New("row modified concurrently")

// WorkItemFilter captures listing parameters.
type WorkItemFilter struct {
	WorkTypes      []domain.WorkType
	Statuses       []domain.WorkItemStatus
	Priorities     []domain.Priority
	AssigneeUserID *string
	AssigneeTeamID *string
	SearchTerm     *string
	ModifiedFrom   *time.Time
	ModifiedTo     *time.Time
	Limit          int
	Offset         int
}

// WorkItemRepository encapsulates work item persistence.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) error
	GetByID(ctx context.Context, id string) (*domain.WorkItem, error)
	ListWithFilter(ctx context.Context, filter WorkItemFilter) ([]domain.WorkItem, error)
	// ListOpen returns every open item, oldest first with ties broken by id.
	ListOpen(ctx context.Context) ([]domain.WorkItem, error)
	ListAll(ctx context.Context) ([]domain.WorkItem, error)
	// ListClosedBetween returns items in a terminal status last modified in [from, to).
	ListClosedBetween(ctx context.Context, from, to time.Time) ([]domain.WorkItem, error)
	// UpdateStatus writes status only if the row still carries expectedModifiedAt.
	UpdateStatus(ctx context.Context, item *domain.WorkItem, status domain.WorkItemStatus, expectedModifiedAt time.Time) error
}

type workItemRepository struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepository instantiates repository.
func NewWorkItemRepository(pool *pgxpool.Pool) WorkItemRepository {
	return &workItemRepository{pool: pool}
}

const workItemColumns = `id, title, description, work_type, status, priority, sla_target_minutes,
               business_service_id, asset_id, assignee_user_id, assignee_team_id, created_at, modified_at`

func (r *workItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (title, description, work_type, status, priority, sla_target_minutes,
            business_service_id, asset_id, assignee_user_id, assignee_team_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, modified_at`
	return r.pool.QueryRow(ctx, query,
		item.Title,
		item.Description,
		item.WorkType,
		item.Status,
		item.Priority,
		item.SLATargetMinutes,
		item.BusinessServiceID,
		item.AssetID,
		item.AssigneeUserID,
		item.AssigneeTeamID,
	).Scan(&item.ID, &item.CreatedAt, &item.ModifiedAt)
}

func (r *workItemRepository) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE id=$1`
	item, err := scanWorkItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *workItemRepository) ListOpen(ctx context.Context) ([]domain.WorkItem, error) {
	statuses := make([]string, 0, len(domain.OpenStatuses))
	for _, s := range domain.OpenStatuses {
		statuses = append(statuses, string(s))
	}
	query := `SELECT ` + workItemColumns + ` FROM work_items
             WHERE status = ANY($1) ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) ListAll(ctx context.Context) ([]domain.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) ListClosedBetween(ctx context.Context, from, to time.Time) ([]domain.WorkItem, error) {
	terminal := toStrings([]domain.WorkItemStatus{domain.StatusResolved, domain.StatusFulfilled, domain.StatusClosed})
	query := `SELECT ` + workItemColumns + ` FROM work_items
             WHERE status = ANY($1) AND modified_at >= $2 AND modified_at < $3
             ORDER BY modified_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, terminal, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) UpdateStatus(ctx context.Context, item *domain.WorkItem, status domain.WorkItemStatus, expectedModifiedAt time.Time) error {
	const query = `
        UPDATE work_items SET status=$1, modified_at=NOW()
        WHERE id=$2 AND modified_at=$3
        RETURNING modified_at`
	var modified time.Time
	err := r.pool.QueryRow(ctx, query, status, item.ID, expectedModifiedAt).Scan(&modified)
	if errors.Is(err, pgx.ErrNoRows) {
		// distinguish a vanished row from a concurrent update
		if _, getErr := r.GetByID(ctx, item.ID); getErr != nil {
			return getErr
		}
		return ErrStaleWrite
	}
	if err != nil {
		return err
	}
	item.Status = status
	item.ModifiedAt = modified
	return nil
}

func (r *workItemRepository) ListWithFilter(ctx context.Context, filter WorkItemFilter) ([]domain.WorkItem, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.WorkTypes) > 0 {
		args = append(args, toStrings(filter.WorkTypes))
		clauses = append(clauses, fmt.Sprintf("work_type = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, toStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.AssigneeUserID != nil {
		args = append(args, *filter.AssigneeUserID)
		clauses = append(clauses, fmt.Sprintf("assignee_user_id=$%d", len(args)))
	}
	if filter.AssigneeTeamID != nil {
		args = append(args, *filter.AssigneeTeamID)
		clauses = append(clauses, fmt.Sprintf("assignee_team_id=$%d", len(args)))
	}
	if filter.ModifiedFrom != nil {
		args = append(args, *filter.ModifiedFrom)
		clauses = append(clauses, fmt.Sprintf("modified_at >= $%d", len(args)))
	}
	if filter.ModifiedTo != nil {
		args = append(args, *filter.ModifiedTo)
		clauses = append(clauses, fmt.Sprintf("modified_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM work_items WHERE %s ORDER BY modified_at DESC, id ASC LIMIT %d OFFSET %d`,
		workItemColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func scanWorkItem(row pgx.Row) (*domain.WorkItem, error) {
	var item domain.WorkItem
	if err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.WorkType,
		&item.Status,
		&item.Priority,
		&item.SLATargetMinutes,
		&item.BusinessServiceID,
		&item.AssetID,
		&item.AssigneeUserID,
		&item.AssigneeTeamID,
		&item.CreatedAt,
		&item.ModifiedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanWorkItems(rows pgx.Rows) ([]domain.WorkItem, error) {
	var result []domain.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
