package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type harness struct {
	store         *memory.Store
	service       *TransitionService
	notifications *NotificationService
	metrics       *observability.Metrics
}

// newHarness seeds ticket #42: status 3 "Open", type 1, no owning role, and a
// rule (3, type 1, any role) -> 5 handing the ticket to role 7.
func newHarness(t *testing.T, policy config.OverridePolicy) *harness {
	t.Helper()
	store := memory.NewStore()
	store.AddStatus(domain.Status{ID: 3, Name: "Open", Color: "green"})
	store.AddStatus(domain.Status{ID: 5, Name: "In Progress", Color: "blue"})
	store.AddStatus(domain.Status{ID: 6, Name: "Waiting", Color: "yellow"})
	store.AddStatus(domain.Status{ID: 9, Name: "Closed", Color: "grey"})
	store.AddRole(domain.Role{ID: 2, Name: "Agent"})
	store.AddRole(domain.Role{ID: 7, Name: "Supervisor"})
	store.AddTicketType(domain.TicketType{ID: 1, Name: "Incident"})
	store.AddRule(domain.TransitionRule{FromStatusID: 3, TicketTypeID: 1, NextStatusID: 5, TargetRoleID: 7, ButtonLabel: "Start"})
	store.AddRule(domain.TransitionRule{FromStatusID: 3, TicketTypeID: 1, NextStatusID: 6, ButtonLabel: "Wait"})
	store.AddTicket(domain.Ticket{ID: 42, StatusID: 3, TypeID: 1, Title: "Printer on fire", CreatedBy: "alice"})

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(nil)
	notifications := NewNotificationService(store.Notifications(), zap.NewNop(), nil, metrics)
	notifications.RegisterHandlers(dispatcher)

	svc := NewTransitionService(TransitionDependencies{
		TicketRepo:     store.Tickets(),
		HistoryRepo:    store.History(),
		CatalogRepo:    store.Catalog(),
		RuleRepo:       store.Rules(),
		TxManager:      store,
		Dispatcher:     dispatcher,
		OverridePolicy: policy,
		Metrics:        metrics,
		Clock:          func() time.Time { return fixedNow },
	})
	return &harness{store: store, service: svc, notifications: notifications, metrics: metrics}
}

func (h *harness) ticket(t *testing.T, id int64) *domain.Ticket {
	t.Helper()
	ticket, err := h.store.Tickets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func (h *harness) history(t *testing.T, id int64) []domain.TicketHistory {
	t.Helper()
	entries, err := h.store.History().ListByTicket(context.Background(), id)
	require.NoError(t, err)
	return entries
}

func TestApply_ConcreteScenario(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.NewStatusID)
	require.NotNil(t, result.RoleID)
	assert.Equal(t, int64(7), *result.RoleID)

	ticket := h.ticket(t, 42)
	assert.Equal(t, int64(5), ticket.StatusID)
	assert.Equal(t, int64(7), ticket.OwningRole())

	history := h.history(t, 42)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TicketHistory{
		ID:         result.HistoryID,
		TicketID:   42,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   "Open",
		NewValue:   "In Progress",
		Actor:      "bob",
		CreatedAt:  fixedNow,
	}, history[0])

	notes, err := h.store.Notifications().ListByTicket(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, int64(7), notes[0].RoleID)
	assert.Contains(t, notes[0].Message, "Printer on fire")

	assert.Equal(t, int64(1), h.metrics.Snapshot().Transitions[observability.TransitionApplied])
}

func TestApply_UnauthorizedTransitionLeavesTicketUnchanged(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 9, ActorRoleID: 2}, "bob")

	require.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, apperrors.CodeTransitionNotAllowed, apperrors.ToDomainError(err).Code)
	assert.Equal(t, int64(3), h.ticket(t, 42).StatusID)
	assert.Nil(t, h.ticket(t, 42).RoleID)
	assert.Empty(t, h.history(t, 42))
	assert.Equal(t, int64(1), h.metrics.Snapshot().Transitions[observability.TransitionRejected])
}

func TestApply_RoleRestrictedRule(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	h.store.AddRule(domain.TransitionRule{FromStatusID: 3, NextStatusID: 9, ActorRoleID: 7})

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 9, ActorRoleID: 2}, "bob")
	require.ErrorIs(t, err, ErrTransitionNotAllowed)

	result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 9, ActorRoleID: 7}, "carol")
	require.NoError(t, err)
	assert.Nil(t, result.RoleID, "rule without target role leaves the ticket unowned")
	assert.Nil(t, h.ticket(t, 42).RoleID)
}

func TestApply_InvalidRequestSkipsStorage(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	tests := []ApplyRequest{
		{TicketID: 0, NextStatusID: 5},
		{TicketID: 42, NextStatusID: -1},
		{TicketID: 42, NextStatusID: 5, ActorRoleID: -2},
		{TicketID: 42, NextStatusID: 5, TargetRoleOverride: -1},
	}
	for _, req := range tests {
		_, err := h.service.Apply(context.Background(), req, "bob")
		require.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
		assert.Equal(t, apperrors.CodeValidation, apperrors.ToDomainError(err).Code)
	}
	assert.Equal(t, int64(3), h.ticket(t, 42).StatusID)
}

func TestApply_TicketNotFound(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 404, NextStatusID: 5, ActorRoleID: 2}, "bob")

	require.ErrorIs(t, err, ErrTicketNotFound)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.ToDomainError(err).Code)
}

func TestApply_NotificationFailureDoesNotAffectTransition(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	fallbackPath := filepath.Join(t.TempDir(), "fallback.log")
	fallback, err := observability.NewFallbackLogger(fallbackPath)
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(h.store.Notifications(), zap.NewNop(), fallback, h.metrics).RegisterHandlers(dispatcher)
	h.service.dispatcher = dispatcher
	h.store.FailNotifications(errors.New("notifications table locked"))

	result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.NewStatusID)

	assert.Equal(t, int64(5), h.ticket(t, 42).StatusID)
	assert.Len(t, h.history(t, 42), 1)
	assert.Equal(t, int64(1), h.metrics.Snapshot().FallbackWrites)

	require.NoError(t, fallback.Sync())
	data, err := os.ReadFile(fallbackPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "notification not recorded")
	assert.Contains(t, string(data), "notifications table locked")
}

func TestApply_HistoryFailureRollsBackStatus(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	h.store.FailHistoryWrites(errors.New("disk full"))

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")

	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, apperrors.CodeStorage, apperrors.ToDomainError(err).Code)
	assert.Equal(t, int64(3), h.ticket(t, 42).StatusID)
	assert.Nil(t, h.ticket(t, 42).RoleID)
	assert.Empty(t, h.history(t, 42))

	notes, err := h.store.Notifications().ListByTicket(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Transitions[observability.TransitionFailed])
}

func TestApply_SelfLoopAppendsHistory(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	h.store.AddRule(domain.TransitionRule{FromStatusID: 3, NextStatusID: 3, ActorRoleID: 7, TargetRoleID: 7, ButtonLabel: "Re-confirm"})

	result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 3, ActorRoleID: 7}, "carol")
	require.NoError(t, err)
	assert.Equal(t, result.OldStatusID, result.NewStatusID)

	history := h.history(t, 42)
	require.Len(t, history, 1)
	assert.Equal(t, "Open", history[0].OldValue)
	assert.Equal(t, "Open", history[0].NewValue)
	assert.Equal(t, int64(7), h.ticket(t, 42).OwningRole())
}

func TestApply_MissingStatusNameDegradesToUnknown(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	h.store.AddRule(domain.TransitionRule{FromStatusID: 3, NextStatusID: 77})

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 77, ActorRoleID: 2}, "bob")
	require.NoError(t, err)

	history := h.history(t, 42)
	require.Len(t, history, 1)
	assert.Equal(t, "Open", history[0].OldValue)
	assert.Equal(t, domain.UnknownStatusName, history[0].NewValue)
}

func TestApply_EmptyActorFallsBackToSystem(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 6, ActorRoleID: 2}, "  ")
	require.NoError(t, err)
	assert.Equal(t, domain.SystemActorLabel, result.Actor)
	assert.Equal(t, domain.SystemActorLabel, h.history(t, 42)[0].Actor)
}

func TestApply_NoOwningRoleSkipsNotification(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 6, ActorRoleID: 2}, "bob")
	require.NoError(t, err)

	notes, err := h.store.Notifications().ListByTicket(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestApply_TargetRoleOverride(t *testing.T) {
	t.Run("strict accepts a role offered by a matching rule", func(t *testing.T) {
		h := newHarness(t, config.OverrideStrict)
		h.store.AddRule(domain.TransitionRule{FromStatusID: 3, NextStatusID: 5, TargetRoleID: 2})

		result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2, TargetRoleOverride: 2}, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(2), *result.RoleID)
		assert.Equal(t, int64(1), result.RuleID, "type-specific rule is the matched rule")
	})

	t.Run("strict rejects an unsanctioned role", func(t *testing.T) {
		h := newHarness(t, config.OverrideStrict)

		_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2, TargetRoleOverride: 99}, "bob")
		require.ErrorIs(t, err, ErrTransitionNotAllowed)
		assert.Equal(t, int64(3), h.ticket(t, 42).StatusID)
		assert.Empty(t, h.history(t, 42))
	})

	t.Run("trusted accepts any positive role", func(t *testing.T) {
		h := newHarness(t, config.OverrideTrusted)

		result, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2, TargetRoleOverride: 99}, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(99), *result.RoleID)
		assert.Equal(t, int64(99), h.ticket(t, 42).OwningRole())
	})
}

func TestApply_ReevaluatesAgainstCurrentStatus(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")
	require.NoError(t, err)

	// the same request was offered while the ticket was Open; it is stale now
	_, err = h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Len(t, h.history(t, 42), 1)
}

func TestApply_ConcurrentExclusiveTransitions(t *testing.T) {
	for i := 0; i < 25; i++ {
		h := newHarness(t, config.OverrideStrict)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, next := range []int64{5, 6} {
			wg.Add(1)
			go func(j int, next int64) {
				defer wg.Done()
				_, errs[j] = h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: next, ActorRoleID: 2}, "racer")
			}(j, next)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			assert.True(t, errors.Is(err, ErrTransitionNotAllowed) || errors.Is(err, ErrStorage), "unexpected error: %v", err)
		}
		require.Equal(t, 1, successes)

		history := h.history(t, 42)
		require.Len(t, history, 1)
		assert.Equal(t, "Open", history[0].OldValue)
	}
}

func TestApply_ResolverOutputContainsAppliedStatus(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	ticket := h.ticket(t, 42)

	before, err := h.service.resolver.Resolve(context.Background(), TransitionQuery{
		TicketID: 42, StatusID: ticket.StatusID, TypeID: ticket.TypeID, ActorRoleID: 2,
	})
	require.NoError(t, err)

	for _, next := range []int64{5, 6, 9} {
		h := newHarness(t, config.OverrideStrict)
		_, applyErr := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: next, ActorRoleID: 2}, "bob")
		_, offered := findRule(before, next)
		assert.Equal(t, offered, applyErr == nil, "next status %d", next)
	}
}

func TestApply_StorageFailureOnLoad(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	h.service.tx = failingTx{err: errors.New("connection reset")}

	_, err := h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")

	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, apperrors.CodeStorage, apperrors.ToDomainError(err).Code)
}

func TestAvailableTransitions(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	available, err := h.service.AvailableTransitions(context.Background(), 42, 2)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "In Progress", available[0].NextStatusName)
	assert.Equal(t, "Supervisor", available[0].TargetRoleName)
	assert.Equal(t, "Waiting", available[1].NextStatusName)
	assert.Empty(t, available[1].TargetRoleName)

	_, err = h.service.AvailableTransitions(context.Background(), 404, 2)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestListHistory(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)

	history, err := h.service.ListHistory(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)

	_, err = h.service.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5, ActorRoleID: 2}, "bob")
	require.NoError(t, err)

	history, err = h.service.ListHistory(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = h.service.ListHistory(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

type failingTx struct {
	err error
}

func (f failingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	return fn(ctx, repository.TxRepositories{Tickets: failingTickets{err: f.err}})
}

type failingTickets struct {
	repository.TicketRepository
	err error
}

func (f failingTickets) GetForUpdate(context.Context, int64) (*domain.Ticket, error) {
	return nil, f.err
}

var errOutsideTx = errors.New("read outside the ticket transaction")

type outsideTxRules struct {
	repository.TransitionRuleRepository
}

func (outsideTxRules) ListFromStatus(context.Context, int64) ([]domain.TransitionRule, error) {
	return nil, errOutsideTx
}

type outsideTxCatalog struct {
	repository.CatalogRepository
}

func (outsideTxCatalog) StatusName(context.Context, int64) (string, bool, error) {
	return "", false, errOutsideTx
}

func TestApply_ReadsRulesAndNamesInsideTransaction(t *testing.T) {
	h := newHarness(t, config.OverrideStrict)
	svc := NewTransitionService(TransitionDependencies{
		TicketRepo:  h.store.Tickets(),
		HistoryRepo: h.store.History(),
		CatalogRepo: outsideTxCatalog{},
		RuleRepo:    outsideTxRules{},
		TxManager:   h.store,
		Clock:       func() time.Time { return fixedNow },
	})

	result, err := svc.Apply(context.Background(), ApplyRequest{TicketID: 42, NextStatusID: 5}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Open", result.OldStatusName)
	assert.Equal(t, "In Progress", result.NewStatusName)
	require.NotNil(t, result.RoleID)
	assert.Equal(t, int64(7), *result.RoleID)
}
