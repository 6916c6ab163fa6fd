package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/service"
	"github.com/spec-kit/ticket-workflow/internal/worker"
)

// Services groups the workflow services built on a Backend.
type Services struct {
	Transitions   *service.TransitionService
	Notifications *service.NotificationService
	Catalog       *service.CatalogService
	Maintenance   *service.MaintenanceService
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
}

// NewServices wires services and subscribes the notification recorder.
func NewServices(cfg *config.Config, b *Backend, logger *zap.Logger) (*Services, error) {
	var fallback *zap.Logger
	if cfg.Notification.FallbackLogPath != "" {
		var err error
		fallback, err = observability.NewFallbackLogger(cfg.Notification.FallbackLogPath)
		if err != nil {
			return nil, fmt.Errorf("open notification fallback log: %w", err)
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(b.Notifications, logger, fallback, metrics)
	worker.StartNotificationWorker(notifications, dispatcher)

	transitions := service.NewTransitionService(service.TransitionDependencies{
		TicketRepo:     b.Tickets,
		HistoryRepo:    b.History,
		CatalogRepo:    b.Catalog,
		RuleRepo:       b.Rules,
		TxManager:      b.Tx,
		Dispatcher:     dispatcher,
		OverridePolicy: cfg.Workflow.OverridePolicy,
		Metrics:        metrics,
		Logger:         logger,
	})

	return &Services{
		Transitions:   transitions,
		Notifications: notifications,
		Catalog:       service.NewCatalogService(b.Catalog),
		Maintenance:   service.NewMaintenanceService(b.Tickets, b.Rules, logger),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
	}, nil
}
