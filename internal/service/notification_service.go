package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/itsm"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/repository"
)

// Publisher sends a payload on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// EscalationNotice is the message published for an escalation.
type EscalationNotice struct {
	WorkItemID string          `json:"work_item_id"`
	Target     itsm.Target     `json:"escalation_target"`
	Kind       itsm.TargetKind `json:"kind"`
	Recipient  string          `json:"recipient"`
	Resolved   bool            `json:"resolved"`
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	teams      repository.TeamRepository
	users      repository.UserRepository
	publisher  Publisher
	metrics    *observability.Metrics
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	TeamRepo   repository.TeamRepository
	UserRepo   repository.UserRepository
	Publisher  Publisher
	Metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		cfg:        deps.Config,
		teams:      deps.TeamRepo,
		users:      deps.UserRepo,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventWorkItemCreated, n.handleWorkItemCreated)
	n.dispatcher.Subscribe(events.EventWorkItemStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventEscalationRequested, n.handleEscalationRequested)
	n.dispatcher.Subscribe(events.EventCertificateExpired, n.handleCertificateExpired)
	n.dispatcher.Subscribe(events.EventAutomationExecuted, n.handleAutomationExecuted)
}

func (n *NotificationService) handleWorkItemCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkItemCreated", zap.String("work_item_id", event.WorkItemID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkItemStatusChanged", zap.String("work_item_id", event.WorkItemID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("SLABreached", zap.String("work_item_id", event.WorkItemID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCertificateExpired(ctx context.Context, event events.Event) error {
	n.logger.Warn("CertificateExpired", zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAutomationExecuted(ctx context.Context, event events.Event) error {
	n.logger.Info("AutomationExecuted", zap.String("work_item_id", event.WorkItemID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected escalation payload %T", event.Payload)
	}
	target, err := itsm.ParseTarget(payload.Target)
	if err != nil {
		n.logger.Warn("unknown escalation target", zap.String("work_item_id", event.WorkItemID), zap.Error(err))
		return nil
	}
	_, err = n.NotifyEscalation(ctx, event.WorkItemID, target)
	return err
}

// NotifyEscalation resolves the target's display name and publishes the
// notice on the escalation channel. An unresolvable team or user is logged
// and the raw reference is used as recipient.
func (n *NotificationService) NotifyEscalation(ctx context.Context, workItemID string, target itsm.Target) (*EscalationNotice, error) {
	notice := &EscalationNotice{
		WorkItemID: workItemID,
		Target:     target,
		Kind:       target.Kind(),
		Recipient:  target.Ref(),
	}

	name, err := n.resolveRecipient(ctx, target)
	switch {
	case err == nil:
		notice.Recipient = name
		notice.Resolved = true
	case errors.Is(err, pgx.ErrNoRows):
		n.logger.Warn("escalation recipient not found",
			zap.String("work_item_id", workItemID),
			zap.String("target", string(target)))
	default:
		return nil, fmt.Errorf("resolve escalation recipient: %w", err)
	}

	n.logger.Info("Escalation",
		zap.String("work_item_id", workItemID),
		zap.String("kind", string(notice.Kind)),
		zap.String("recipient", notice.Recipient))

	if n.publisher != nil && strings.TrimSpace(n.cfg.EscalationChannel) != "" {
		body, err := json.Marshal(notice)
		if err != nil {
			return nil, err
		}
		if _, err := n.publisher.Publish(ctx, n.cfg.EscalationChannel, body); err != nil {
			return nil, fmt.Errorf("publish escalation: %w", err)
		}
	}
	n.metrics.RecordEscalation(string(notice.Kind))
	return notice, nil
}

func (n *NotificationService) resolveRecipient(ctx context.Context, target itsm.Target) (string, error) {
	switch target.Kind() {
	case itsm.TargetTeam:
		if n.teams == nil {
			return "", pgx.ErrNoRows
		}
		team, err := n.teams.GetByName(ctx, target.Ref())
		if err != nil {
			return "", err
		}
		return team.Name, nil
	case itsm.TargetUser:
		// user ids are uuids; anything else cannot name an operator
		if _, err := uuid.Parse(target.Ref()); err != nil || n.users == nil {
			return "", pgx.ErrNoRows
		}
		user, err := n.users.GetByID(ctx, target.Ref())
		if err != nil {
			return "", err
		}
		return user.DisplayName, nil
	}
	return "", pgx.ErrNoRows
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("work_item_id", event.WorkItemID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("work_item_id", event.WorkItemID),
		zap.String("event_type", string(event.Type)))
}
