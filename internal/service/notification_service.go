package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdeskhq/support-desk/internal/events"
)

// NotificationService records ticket activity as structured log entries.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("activity"),
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTicketEvents() {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Time("at", event.Timestamp),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	n.logger.Info(string(event.Type), fields...)
	return nil
}
