package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// TransitionService validates and applies workflow transitions.
type TransitionService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	catalog    repository.CatalogRepository
	tx         repository.TxManager
	resolver   *TransitionResolver
	dispatcher events.Dispatcher
	policy     config.OverridePolicy
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TransitionDependencies bundles collaborators for the transition service.
type TransitionDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.TicketHistoryRepository
	CatalogRepo    repository.CatalogRepository
	RuleRepo       repository.TransitionRuleRepository
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
	OverridePolicy config.OverridePolicy
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// ApplyRequest asks for a ticket to move to NextStatusID. Zero
// TargetRoleOverride means no override.
type ApplyRequest struct {
	TicketID           int64
	NextStatusID       int64
	ActorRoleID        int64
	TargetRoleOverride int64
}

// ApplyResult describes a committed transition.
type ApplyResult struct {
	TicketID      int64
	RuleID        int64
	OldStatusID   int64
	NewStatusID   int64
	OldStatusName string
	NewStatusName string
	RoleID        *int64
	HistoryID     int64
	Actor         string
}

// AvailableTransition is a resolved rule decorated for display.
type AvailableTransition struct {
	Rule           domain.TransitionRule
	NextStatusName string
	TargetRoleName string
}

// NewTransitionService constructs the service.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	policy := deps.OverridePolicy
	if policy == "" {
		policy = config.OverrideStrict
	}
	return &TransitionService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		catalog:    deps.CatalogRepo,
		tx:         deps.TxManager,
		resolver:   NewTransitionResolver(deps.RuleRepo),
		dispatcher: deps.Dispatcher,
		policy:     policy,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// Validate rejects non-positive identifiers before any storage access.
func (r ApplyRequest) Validate() error {
	details := map[string]any{}
	if r.TicketID <= 0 {
		details["ticket_id"] = "must be positive"
	}
	if r.NextStatusID <= 0 {
		details["next_status_id"] = "must be positive"
	}
	if r.ActorRoleID < 0 {
		details["actor_role_id"] = "must not be negative"
	}
	if r.TargetRoleOverride < 0 {
		details["target_role_id"] = "must not be negative"
	}
	if len(details) > 0 {
		return invalidRequest("invalid transition request", details)
	}
	return nil
}

// Apply re-derives the allowed transitions from the ticket's locked, current
// state and, when the requested status is among them, updates the ticket and
// appends a history entry in one transaction. Notification happens after
// commit and cannot fail the request. Rules and status names are read through
// the transaction that holds the row lock.
func (s *TransitionService) Apply(ctx context.Context, req ApplyRequest, actorLabel string) (*ApplyResult, error) {
	if err := req.Validate(); err != nil {
		s.metrics.RecordTransition(observability.TransitionRejected)
		return nil, err
	}
	actor := domain.Actor{Label: actorLabel, RoleID: req.ActorRoleID}

	var (
		result *ApplyResult
		title  string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, req.TicketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ticketNotFound(req.TicketID)
			}
			return storageFailure(err)
		}

		allowed, err := NewTransitionResolver(repos.Rules).Resolve(ctx, TransitionQuery{
			TicketID:    ticket.ID,
			StatusID:    ticket.StatusID,
			TypeID:      ticket.TypeID,
			ActorRoleID: req.ActorRoleID,
		})
		if err != nil {
			return storageFailure(err)
		}
		rule, ok := findRule(allowed, req.NextStatusID)
		if !ok {
			return transitionNotAllowed("requested status is not reachable from the ticket's current status", map[string]any{
				"ticket_id":      ticket.ID,
				"current_status": ticket.StatusID,
				"next_status_id": req.NextStatusID,
				"actor_role_id":  req.ActorRoleID,
			})
		}

		roleID, err := s.owningRole(allowed, rule, req)
		if err != nil {
			return err
		}

		oldName := s.statusName(ctx, repos.Catalog, ticket.StatusID)
		newName := s.statusName(ctx, repos.Catalog, req.NextStatusID)

		if err := repos.Tickets.UpdateStatusAndRole(ctx, ticket.ID, ticket.StatusID, req.NextStatusID, roleID); err != nil {
			return storageFailure(err)
		}
		entry := &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   oldName,
			NewValue:   newName,
			Actor:      actor.EffectiveLabel(),
			CreatedAt:  s.now(),
		}
		if err := repos.History.Create(ctx, entry); err != nil {
			return storageFailure(err)
		}

		title = ticket.Title
		result = &ApplyResult{
			TicketID:      ticket.ID,
			RuleID:        rule.ID,
			OldStatusID:   ticket.StatusID,
			NewStatusID:   req.NextStatusID,
			OldStatusName: oldName,
			NewStatusName: newName,
			RoleID:        roleID,
			HistoryID:     entry.ID,
			Actor:         entry.Actor,
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrStorage) {
			s.metrics.RecordTransition(observability.TransitionFailed)
			s.logger.Error("transition failed", zap.Int64("ticket_id", req.TicketID), zap.Error(err))
		} else {
			s.metrics.RecordTransition(observability.TransitionRejected)
		}
		return nil, err
	}

	s.metrics.RecordTransition(observability.TransitionApplied)
	s.logger.Info("transition applied",
		zap.Int64("ticket_id", result.TicketID),
		zap.Int64("rule_id", result.RuleID),
		zap.Int64("old_status_id", result.OldStatusID),
		zap.Int64("new_status_id", result.NewStatusID),
		zap.String("actor", result.Actor))
	s.publishStatusChanged(ctx, result, title, actor)
	return result, nil
}

// owningRole picks the role that owns the ticket after the transition.
func (s *TransitionService) owningRole(allowed []domain.TransitionRule, rule domain.TransitionRule, req ApplyRequest) (*int64, error) {
	if req.TargetRoleOverride > 0 {
		if s.policy == config.OverrideStrict && !overrideSanctioned(allowed, req.NextStatusID, req.TargetRoleOverride) {
			return nil, transitionNotAllowed("target role override is not offered by any matching rule", map[string]any{
				"next_status_id": req.NextStatusID,
				"target_role_id": req.TargetRoleOverride,
			})
		}
		role := req.TargetRoleOverride
		return &role, nil
	}
	if rule.TargetRoleID > 0 {
		role := rule.TargetRoleID
		return &role, nil
	}
	return nil, nil
}

func overrideSanctioned(allowed []domain.TransitionRule, nextStatusID, roleID int64) bool {
	for _, rule := range allowed {
		if rule.NextStatusID == nextStatusID && rule.TargetRoleID == roleID {
			return true
		}
	}
	return false
}

func (s *TransitionService) statusName(ctx context.Context, catalog repository.CatalogRepository, statusID int64) string {
	if catalog == nil {
		return domain.UnknownStatusName
	}
	name, ok, err := catalog.StatusName(ctx, statusID)
	if err != nil {
		s.logger.Warn("status name lookup failed", zap.Int64("status_id", statusID), zap.Error(err))
		return domain.UnknownStatusName
	}
	if !ok || name == "" {
		return domain.UnknownStatusName
	}
	return name
}

func (s *TransitionService) roleName(ctx context.Context, roleID int64) string {
	if s.catalog == nil || roleID <= 0 {
		return ""
	}
	name, _, err := s.catalog.RoleName(ctx, roleID)
	if err != nil {
		s.logger.Warn("role name lookup failed", zap.Int64("role_id", roleID), zap.Error(err))
		return ""
	}
	return name
}

// AvailableTransitions lists what actorRoleID may do with the ticket now.
func (s *TransitionService) AvailableTransitions(ctx context.Context, ticketID, actorRoleID int64) ([]AvailableTransition, error) {
	if ticketID <= 0 {
		return nil, invalidRequest("ticket id must be positive", map[string]any{"ticket_id": ticketID})
	}
	if actorRoleID < 0 {
		return nil, invalidRequest("actor role id must not be negative", map[string]any{"actor_role_id": actorRoleID})
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.resolver.Resolve(ctx, TransitionQuery{
		TicketID:    ticket.ID,
		StatusID:    ticket.StatusID,
		TypeID:      ticket.TypeID,
		ActorRoleID: actorRoleID,
	})
	if err != nil {
		return nil, storageFailure(err)
	}
	result := make([]AvailableTransition, 0, len(allowed))
	for _, rule := range allowed {
		result = append(result, AvailableTransition{
			Rule:           rule,
			NextStatusName: s.statusName(ctx, s.catalog, rule.NextStatusID),
			TargetRoleName: s.roleName(ctx, rule.TargetRoleID),
		})
	}
	return result, nil
}

// ListHistory returns the audit trail of a ticket in creation order.
func (s *TransitionService) ListHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	if ticketID <= 0 {
		return nil, invalidRequest("ticket id must be positive", map[string]any{"ticket_id": ticketID})
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storageFailure(err)
	}
	if history == nil {
		history = []domain.TicketHistory{}
	}
	return history, nil
}

// GetTicket loads a ticket by id.
func (s *TransitionService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	if ticketID <= 0 {
		return nil, invalidRequest("ticket id must be positive", map[string]any{"ticket_id": ticketID})
	}
	return s.loadTicket(ctx, ticketID)
}

func (s *TransitionService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ticketID)
		}
		return nil, storageFailure(err)
	}
	return ticket, nil
}

func (s *TransitionService) publishStatusChanged(ctx context.Context, result *ApplyResult, title string, actor domain.Actor) {
	if s.dispatcher == nil {
		return
	}
	var newRole int64
	if result.RoleID != nil {
		newRole = *result.RoleID
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  result.TicketID,
		Actor:     events.Actor{Label: result.Actor, RoleID: actor.RoleID},
		Timestamp: s.now(),
		Payload: events.TicketStatusChangedPayload{
			RuleID:        result.RuleID,
			OldStatusID:   result.OldStatusID,
			NewStatusID:   result.NewStatusID,
			OldStatusName: result.OldStatusName,
			NewStatusName: result.NewStatusName,
			NewRoleID:     newRole,
			TicketTitle:   title,
		},
	})
}
