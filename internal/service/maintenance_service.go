package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// MaintenanceService hosts administrative data checks and repairs.
type MaintenanceService struct {
	tickets repository.TicketRepository
	rules   repository.TransitionRuleRepository
	logger  *zap.Logger
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(tickets repository.TicketRepository, rules repository.TransitionRuleRepository, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{tickets: tickets, rules: rules, logger: logger}
}

// InconsistentTickets lists tickets whose status, type or owning role does not
// exist in the catalog.
func (s *MaintenanceService) InconsistentTickets(ctx context.Context, limit int) ([]repository.InconsistentTicket, error) {
	items, err := s.tickets.ListInconsistent(ctx, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	if items == nil {
		items = []repository.InconsistentTicket{}
	}
	return items, nil
}

// StripButtonLabel removes substring from every transition button label.
func (s *MaintenanceService) StripButtonLabel(ctx context.Context, substring string) (int64, error) {
	if strings.TrimSpace(substring) == "" {
		return 0, invalidRequest("substring must not be blank", nil)
	}
	changed, err := s.rules.StripLabel(ctx, substring)
	if err != nil {
		return 0, storageFailure(err)
	}
	s.logger.Info("button labels updated", zap.String("substring", substring), zap.Int64("rules", changed))
	return changed, nil
}
