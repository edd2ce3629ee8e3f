package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-service/internal/api/dto"
	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/domain"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/service"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// WorkItemsHandler manages work item endpoints.
type WorkItemsHandler struct {
	service *service.WorkItemService
}

// NewWorkItemsHandler constructs handler.
func NewWorkItemsHandler(workItemService *service.WorkItemService) *WorkItemsHandler {
	return &WorkItemsHandler{service: workItemService}
}

// Create POST /api/workitems.
func (h *WorkItemsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateWorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.Create(c.UserContext(), currentUserID(c), service.WorkItemCreateInput{
		Title:             req.Title,
		Description:       req.Description,
		WorkType:          req.WorkType,
		Priority:          req.Priority,
		SLATargetMinutes:  req.SLATargetMinutes,
		BusinessServiceID: req.BusinessServiceID,
		AssetID:           req.AssetID,
		AssigneeUserID:    req.AssigneeUserID,
		AssigneeTeamID:    req.AssigneeTeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": workItemResponse(item)})
}

// List GET /api/workitems.
func (h *WorkItemsHandler) List(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), parseWorkItemFilter(c))
	if err != nil {
		return err
	}
	resp := make([]dto.WorkItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, workItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Queue GET /api/workitems/queue.
func (h *WorkItemsHandler) Queue(c *fiber.Ctx) error {
	scored, err := h.service.Queue(c.UserContext(), currentUserID(c), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	resp := make([]dto.ScoredWorkItemResponse, 0, len(scored))
	for i := range scored {
		resp = append(resp, scoredResponse(&scored[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get GET /api/workitems/:id.
func (h *WorkItemsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	scored, err := h.service.Detail(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": scoredResponse(scored)})
}

// UpdateStatus POST /api/workitems/:id/status.
func (h *WorkItemsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(string(req.Status)) == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	item, err := h.service.UpdateStatus(c.UserContext(), currentUserID(c), id, req.Status, req.ModifiedAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workItemResponse(item)})
}

// SLATarget GET /api/workitems/:id/sla-target.
func (h *WorkItemsHandler) SLATarget(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	minutes, err := h.service.SLATarget(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.SLATargetResponse{SLAMinutes: minutes})
}

// Impact GET /api/workitems/:id/impact.
func (h *WorkItemsHandler) Impact(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	impact, err := h.service.Impact(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(impact)
}

// Escalation GET /api/workitems/:id/escalation.
func (h *WorkItemsHandler) Escalation(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	target, err := h.service.Escalation(c.UserContext(), id)
	if err != nil {
		return err
	}
	resp := dto.EscalationResponse{}
	if target != nil {
		raw := string(*target)
		resp.EscalationTarget = &raw
	}
	return c.JSON(resp)
}

// AutomationEligibility GET /api/workitems/:id/automation-eligibility.
func (h *WorkItemsHandler) AutomationEligibility(c *fiber.Ctx) error {
	id, err := pathID(c, "work item")
	if err != nil {
		return err
	}
	ids, err := h.service.EligibleRuleIDs(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.EligibleRulesResponse{EligibleRules: ids})
}

func currentUserID(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return ""
	}
	return principal.UserID()
}

func parseWorkItemFilter(c *fiber.Ctx) repository.WorkItemFilter {
	filter := repository.WorkItemFilter{}
	for _, part := range splitList(c.Query("work_type")) {
		filter.WorkTypes = append(filter.WorkTypes, domain.WorkType(part))
	}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.WorkItemStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.Priority(part))
	}
	if v := c.Query("assignee_user_id"); v != "" {
		filter.AssigneeUserID = &v
	}
	if v := c.Query("assignee_team_id"); v != "" {
		filter.AssigneeTeamID = &v
	}
	if v := c.Query("q"); v != "" {
		filter.SearchTerm = &v
	}
	filter.ModifiedFrom = parseTime(c.Query("modified_from"))
	filter.ModifiedTo = parseTime(c.Query("modified_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		page = maxPage
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func workItemResponse(item *domain.WorkItem) dto.WorkItemResponse {
	return dto.WorkItemResponse{
		ID:                item.ID,
		Title:             item.Title,
		Description:       item.Description,
		WorkType:          item.WorkType,
		Status:            item.Status,
		Priority:          item.Priority,
		SLATargetMinutes:  item.SLATargetMinutes,
		BusinessServiceID: item.BusinessServiceID,
		AssetID:           item.AssetID,
		AssigneeUserID:    item.AssigneeUserID,
		AssigneeTeamID:    item.AssigneeTeamID,
		CreatedAt:         item.CreatedAt,
		ModifiedAt:        item.ModifiedAt,
	}
}

func scoredResponse(scored *service.ScoredWorkItem) dto.ScoredWorkItemResponse {
	return dto.ScoredWorkItemResponse{
		WorkItemResponse: workItemResponse(&scored.Item),
		SmartScore:       scored.Score,
		ScoreBreakdown:   scored.Breakdown,
	}
}
