package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/itsm-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	WorkItems      *handlers.WorkItemsHandler
	Automation     *handlers.AutomationHandler
	Orchestration  *handlers.OrchestrationHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole())

	items := api.Group("/workitems")
	items.Post("/", cfg.WorkItems.Create)
	items.Get("/", cfg.WorkItems.List)
	items.Get("/queue", cfg.WorkItems.Queue)
	items.Get("/:id", cfg.WorkItems.Get)
	items.Post("/:id/status", cfg.WorkItems.UpdateStatus)
	items.Get("/:id/sla-target", cfg.WorkItems.SLATarget)
	items.Get("/:id/impact", cfg.WorkItems.Impact)
	items.Get("/:id/escalation", cfg.WorkItems.Escalation)
	items.Get("/:id/automation-eligibility", cfg.WorkItems.AutomationEligibility)

	automation := api.Group("/automation/rules")
	automation.Get("/:id/eligible-workitems", cfg.Automation.EligibleWorkItems)
	automation.Post("/:id/execute", auth.RequireRole(domain.UserRoleManager, domain.UserRoleAdmin), cfg.Automation.Execute)

	orchestration := api.Group("/orchestration", auth.RequireRole(domain.UserRoleManager, domain.UserRoleAdmin))
	orchestration.Post("/sla-checks", cfg.Orchestration.SLAChecks)
	orchestration.Post("/escalations", cfg.Orchestration.Escalate)
	orchestration.Post("/compliance-checks", cfg.Orchestration.ComplianceChecks)
	orchestration.Post("/metric-rollup", cfg.Orchestration.MetricRollup)
}
