package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// NotificationService records notification intents for roles that take
// ownership of a ticket. Failures go to a fallback log and are never returned.
type NotificationService struct {
	repo     repository.NotificationRepository
	logger   *zap.Logger
	fallback *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewNotificationService creates the service. fallback receives one line
// per notification that could not be stored; nil routes those lines to logger.
func NewNotificationService(repo repository.NotificationRepository, logger, fallback *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = logger
	}
	return &NotificationService{
		repo:     repo,
		logger:   logger,
		fallback: fallback,
		metrics:  metrics,
		now:      time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	if payload.NewRoleID <= 0 {
		return nil
	}
	n.Record(ctx, payload.NewRoleID, event.TicketID, statusChangedMessage(event.TicketID, payload))
	return nil
}

// Record stores a notification for roleID and reports whether it reached the
// primary sink.
func (n *NotificationService) Record(ctx context.Context, roleID, ticketID int64, message string) (recorded bool) {
	defer func() {
		if r := recover(); r != nil {
			n.writeFallback(roleID, ticketID, message, fmt.Errorf("%w: panic: %v", ErrNotification, r))
			recorded = false
		}
	}()

	if n.repo == nil {
		n.writeFallback(roleID, ticketID, message, fmt.Errorf("%w: no notification store", ErrNotification))
		return false
	}
	record := &domain.Notification{
		RoleID:    roleID,
		TicketID:  ticketID,
		Message:   message,
		CreatedAt: n.now(),
	}
	if err := n.repo.Create(ctx, record); err != nil {
		n.writeFallback(roleID, ticketID, message, fmt.Errorf("%w: %w", ErrNotification, err))
		return false
	}
	n.logger.Debug("notification recorded",
		zap.Int64("notification_id", record.ID),
		zap.Int64("role_id", roleID),
		zap.Int64("ticket_id", ticketID))
	return true
}

func (n *NotificationService) writeFallback(roleID, ticketID int64, message string, err error) {
	n.metrics.RecordFallbackWrite()
	n.logger.Warn("notification diverted to fallback log",
		zap.Int64("role_id", roleID),
		zap.Int64("ticket_id", ticketID),
		zap.Error(err))
	n.fallback.Info("notification not recorded",
		zap.Int64("role_id", roleID),
		zap.Int64("ticket_id", ticketID),
		zap.String("message", message),
		zap.String("error", err.Error()))
}

func statusChangedMessage(ticketID int64, p events.TicketStatusChangedPayload) string {
	if p.TicketTitle == "" {
		return fmt.Sprintf("Ticket #%d moved from %s to %s", ticketID, p.OldStatusName, p.NewStatusName)
	}
	return fmt.Sprintf("Ticket #%d %q moved from %s to %s", ticketID, p.TicketTitle, p.OldStatusName, p.NewStatusName)
}
