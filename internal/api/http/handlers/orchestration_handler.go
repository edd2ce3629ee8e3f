package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-service/internal/api/dto"
	"github.com/spec-kit/itsm-service/internal/service"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// OrchestrationHandler triggers the batch jobs on demand.
type OrchestrationHandler struct {
	sla        *service.SLACheckService
	compliance *service.ComplianceService
	rollup     *service.RollupService
}

// NewOrchestrationHandler constructs handler.
func NewOrchestrationHandler(sla *service.SLACheckService, compliance *service.ComplianceService, rollup *service.RollupService) *OrchestrationHandler {
	return &OrchestrationHandler{sla: sla, compliance: compliance, rollup: rollup}
}

// SLAChecks POST /api/orchestration/sla-checks.
func (h *OrchestrationHandler) SLAChecks(c *fiber.Ctx) error {
	alerts, err := h.sla.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.SLACheckResponse{Alerts: alerts})
}

// Escalate POST /api/orchestration/escalations.
func (h *OrchestrationHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	workItemID, err := bodyID("work_item_id", req.WorkItemID)
	if err != nil {
		return err
	}
	if req.EscalationTarget == "" {
		return apperrors.NewValidationError("escalation_target required", nil)
	}
	notice, err := h.sla.Escalate(c.UserContext(), workItemID, req.EscalationTarget)
	if err != nil {
		return err
	}
	return c.JSON(dto.EscalateResponse{
		WorkItemID:       notice.WorkItemID,
		EscalationTarget: string(notice.Target),
		Recipient:        notice.Recipient,
		Resolved:         notice.Resolved,
	})
}

// ComplianceChecks POST /api/orchestration/compliance-checks.
func (h *OrchestrationHandler) ComplianceChecks(c *fiber.Ctx) error {
	expired, err := h.compliance.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ComplianceCheckResponse{Expired: expired})
}

// MetricRollup POST /api/orchestration/metric-rollup.
func (h *OrchestrationHandler) MetricRollup(c *fiber.Ctx) error {
	metrics, err := h.rollup.Run(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.MetricRollupResponse{Metrics: make([]dto.MetricResponse, 0, len(metrics))}
	for _, m := range metrics {
		resp.Metrics = append(resp.Metrics, dto.MetricResponse{
			ID:         m.ID,
			Name:       m.Name,
			MetricType: m.MetricType,
			Value:      m.Value,
			RecordedAt: m.RecordedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(resp)
}
