package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	"github.com/spec-kit/collections-sequencer/internal/config"
	"github.com/spec-kit/collections-sequencer/internal/events"
)

// NotificationService bridges step advances to the messaging collaborator.
// Actual delivery (SMS/email/voice) happens outside this engine; the stubs
// here stand in for that boundary and log what would be sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.MessagingConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.MessagingConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventStepAdvanced, n.handleStepAdvanced)
	n.dispatcher.Subscribe(events.EventSequenceSentToAgency, n.handleSentToAgency)
	n.dispatcher.Subscribe(events.EventSequenceCompleted, n.handleCompleted)
}

func (n *NotificationService) handleStepAdvanced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.StepAdvancedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("StepAdvanced",
		zap.String("sequence_id", event.SequenceID),
		zap.String("account_id", event.AccountID),
		zap.Int("offset", payload.ToOffset),
		zap.String("channel", string(payload.Channel)))

	switch payload.Channel {
	case catalog.ChannelSMS, catalog.ChannelPhone:
		n.sendSMSStub(ctx, event, payload)
	case catalog.ChannelEmail, catalog.ChannelStatement, catalog.ChannelFinalNotice:
		n.sendEmailStub(ctx, event, payload)
	}
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSentToAgency(ctx context.Context, event events.Event) error {
	n.logger.Info("SequenceSentToAgency",
		zap.String("sequence_id", event.SequenceID),
		zap.String("account_id", event.AccountID))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("SequenceCompleted",
		zap.String("sequence_id", event.SequenceID),
		zap.String("account_id", event.AccountID))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendSMSStub(ctx context.Context, event events.Event, payload events.StepAdvancedPayload) {
	if strings.TrimSpace(n.cfg.SMSFrom) == "" {
		return
	}
	n.logger.Debug("sendSMSStub",
		zap.String("from", n.cfg.SMSFrom),
		zap.String("account_id", event.AccountID),
		zap.String("action", payload.Action))
}

func (n *NotificationService) sendEmailStub(ctx context.Context, event events.Event, payload events.StepAdvancedPayload) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("account_id", event.AccountID),
		zap.String("action", payload.Action))
}

func (n *NotificationService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("sequence_id", event.SequenceID),
		zap.String("event_type", string(event.Type)))
}
