package worker

import (
	"context"

	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/service"
)

// Job names used as metric labels.
const (
	JobSLACheck        = "sla_check"
	JobComplianceCheck = "compliance_check"
	JobMetricRollup    = "metric_rollup"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StandardJobs builds the periodic jobs from configuration.
func StandardJobs(cfg config.JobsConfig, sla *service.SLACheckService, compliance *service.ComplianceService, rollup *service.RollupService) []Job {
	return []Job{
		{Name: JobSLACheck, Interval: cfg.SLACheckInterval(), Run: func(ctx context.Context) error {
			_, err := sla.Run(ctx)
			return err
		}},
		{Name: JobComplianceCheck, Interval: cfg.ComplianceInterval(), Run: func(ctx context.Context) error {
			_, err := compliance.Run(ctx)
			return err
		}},
		{Name: JobMetricRollup, Interval: cfg.RollupInterval(), Run: func(ctx context.Context) error {
			_, err := rollup.Run(ctx)
			return err
		}},
	}
}
