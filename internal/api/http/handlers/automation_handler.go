package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-service/internal/api/dto"
	"github.com/spec-kit/itsm-service/internal/service"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// AutomationHandler exposes automation rule endpoints.
type AutomationHandler struct {
	service *service.AutomationService
}

// NewAutomationHandler constructs handler.
func NewAutomationHandler(automationService *service.AutomationService) *AutomationHandler {
	return &AutomationHandler{service: automationService}
}

// EligibleWorkItems GET /api/automation/rules/:id/eligible-workitems.
func (h *AutomationHandler) EligibleWorkItems(c *fiber.Ctx) error {
	ruleID, err := pathID(c, "automation rule")
	if err != nil {
		return err
	}
	items, err := h.service.EligibleWorkItems(c.UserContext(), ruleID)
	if err != nil {
		return err
	}
	refs := make([]dto.WorkItemRef, 0, len(items))
	for _, item := range items {
		refs = append(refs, dto.WorkItemRef{ID: item.ID, Title: item.Title})
	}
	return c.JSON(dto.EligibleWorkItemsResponse{EligibleWorkItems: refs})
}

// Execute POST /api/automation/rules/:id/execute.
func (h *AutomationHandler) Execute(c *fiber.Ctx) error {
	var req dto.ExecuteRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ruleID, err := pathID(c, "automation rule")
	if err != nil {
		return err
	}
	workItemID, err := bodyID("work_item_id", req.WorkItemID)
	if err != nil {
		return err
	}
	result, err := h.service.Execute(c.UserContext(), currentUserID(c), ruleID, workItemID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExecutionResponse{
		LogID:                result.Log.ID,
		RuleID:               result.Log.RuleID,
		WorkItemID:           result.Log.WorkItemID,
		Status:               result.Log.Status,
		ExecutionTimeSeconds: result.Log.ExecutionTimeSeconds,
		Steps:                result.Steps,
	}})
}
