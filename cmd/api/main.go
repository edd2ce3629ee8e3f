package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/itsm-service/internal/api/http"
	"github.com/spec-kit/itsm-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/persistence"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/service"
	"github.com/spec-kit/itsm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	rules, err := itsm.LoadRules(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("failed to load rules", zap.String("path", cfg.Rules.Path), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	workItemRepo := repository.NewWorkItemRepository(pool)
	businessServiceRepo := repository.NewBusinessServiceRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)
	ruleRepo := repository.NewAutomationRuleRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
		TeamRepo:   teamRepo,
		UserRepo:   userRepo,
		Publisher:  redis,
		Metrics:    metrics,
	})
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	automationService := service.NewAutomationService(service.AutomationDependencies{
		RuleRepo:     ruleRepo,
		WorkItemRepo: workItemRepo,
		AssetRepo:    assetRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	workItemService := service.NewWorkItemService(service.WorkItemDependencies{
		WorkItemRepo:        workItemRepo,
		BusinessServiceRepo: businessServiceRepo,
		Automation:          automationService,
		Rules:               rules,
		Dispatcher:          dispatcher,
		Logger:              logger,
		ImpactWindowMinutes: cfg.Jobs.ImpactWindowMinutes,
	})
	slaService := service.NewSLACheckService(service.SLACheckDependencies{
		WorkItemRepo: workItemRepo,
		Rules:        rules,
		Escalator:    notificationService,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	complianceService := service.NewComplianceService(assetRepo, dispatcher, logger, nil)
	rollupService := service.NewRollupService(workItemRepo, analyticsRepo, logger, nil)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		WorkItems:      handlers.NewWorkItemsHandler(workItemService),
		Automation:     handlers.NewAutomationHandler(automationService),
		Orchestration:  handlers.NewOrchestrationHandler(slaService, complianceService, rollupService),
		AuthMiddleware: authMiddleware,
		Gatherer:       prometheus.DefaultGatherer,
	})

	scheduler := worker.NewScheduler(logger, metrics,
		worker.StandardJobs(cfg.Jobs, slaService, complianceService, rollupService)...)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-schedulerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
