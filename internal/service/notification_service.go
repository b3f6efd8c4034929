package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/member-portal/internal/config"
	"github.com/spec-kit/member-portal/internal/events"
)

// NotificationService turns account events into (stubbed) e-mails.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	baseURL    string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, baseURL string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// EventTypes lists the events that produce notifications.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventAccountRegistered,
		events.EventPasswordResetRequested,
		events.EventPasswordResetCompleted,
		events.EventAccountDeleted,
	}
}

// RegisterHandlers subscribes Handle synchronously to every notification event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range n.EventTypes() {
		n.dispatcher.Subscribe(eventType, n.Handle)
	}
}

// Handle sends the notification for a single event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventAccountRegistered:
		return n.handleAccountRegistered(ctx, event)
	case events.EventPasswordResetRequested:
		return n.handlePasswordResetRequested(ctx, event)
	case events.EventPasswordResetCompleted:
		return n.handlePasswordResetCompleted(ctx, event)
	case events.EventAccountDeleted:
		return n.handleAccountDeleted(ctx, event)
	default:
		return fmt.Errorf("no notification for event %q", event.Type)
	}
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountRegisteredPayload)
	n.logger.Info("AccountRegistered", zap.String("user_id", event.UserID))
	n.sendEmailNotificationStub(ctx, event, payload.Email, "Welcome to the portal", n.baseURL+"/dashboard")
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PasswordResetRequestedPayload)
	n.logger.Info("PasswordResetRequested", zap.String("user_id", event.UserID), zap.Time("expires_at", payload.ExpiresAt))
	n.sendEmailNotificationStub(ctx, event, payload.Email, "Reset your password", n.ResetLink(payload.Email, payload.Token))
	return nil
}

func (n *NotificationService) handlePasswordResetCompleted(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PasswordResetCompletedPayload)
	n.logger.Info("PasswordResetCompleted", zap.String("user_id", event.UserID))
	n.sendEmailNotificationStub(ctx, event, payload.Email, "Your password was changed", n.baseURL+"/login")
	return nil
}

func (n *NotificationService) handleAccountDeleted(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountDeletedPayload)
	n.logger.Info("AccountDeleted", zap.String("user_id", event.UserID))
	n.sendEmailNotificationStub(ctx, event, payload.Email, "Your account was deleted", "")
	return nil
}

// ResetLink builds the URL a user follows to choose a new password.
func (n *NotificationService) ResetLink(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return n.baseURL + "/auth/reset_password?" + q.Encode()
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, to, subject, link string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("link", link),
		zap.String("event_type", string(event.Type)))
}
