package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
)

func TestRecord_StoresNotification(t *testing.T) {
	store := memory.NewStore()
	svc := NewNotificationService(store.Notifications(), zap.NewNop(), nil, nil)

	assert.True(t, svc.Record(context.Background(), 7, 42, "hello"))

	notes, err := store.Notifications().ListByTicket(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "hello", notes[0].Message)
	assert.Equal(t, int64(7), notes[0].RoleID)
}

func TestRecord_FailureWritesFallback(t *testing.T) {
	store := memory.NewStore()
	store.FailNotifications(errors.New("insert failed"))
	path := filepath.Join(t.TempDir(), "fallback.log")
	fallback, err := observability.NewFallbackLogger(path)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	svc := NewNotificationService(store.Notifications(), zap.NewNop(), fallback, metrics)

	assert.False(t, svc.Record(context.Background(), 7, 42, "hello"))
	require.NoError(t, fallback.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "insert failed")
	assert.Contains(t, string(data), `"ticket_id": 42`)
	assert.Equal(t, int64(1), metrics.Snapshot().FallbackWrites)
}

type panickingNotifications struct{}

func (panickingNotifications) Create(context.Context, *domain.Notification) error {
	panic("driver bug")
}

func (panickingNotifications) ListByTicket(context.Context, int64) ([]domain.Notification, error) {
	return nil, nil
}

func TestRecord_RecoversFromPanic(t *testing.T) {
	svc := NewNotificationService(panickingNotifications{}, zap.NewNop(), nil, nil)

	assert.NotPanics(t, func() {
		assert.False(t, svc.Record(context.Background(), 7, 42, "hello"))
	})
}

func TestHandleTicketStatusChanged(t *testing.T) {
	store := memory.NewStore()
	svc := NewNotificationService(store.Notifications(), zap.NewNop(), nil, nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc.RegisterHandlers(dispatcher)

	publish := func(roleID int64) {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
			Type:      events.EventTicketStatusChanged,
			TicketID:  42,
			Timestamp: time.Now(),
			Payload: events.TicketStatusChangedPayload{
				OldStatusName: "Open",
				NewStatusName: "In Progress",
				NewRoleID:     roleID,
			},
		}))
	}
	publish(0)
	publish(7)

	notes, err := store.Notifications().ListByTicket(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Ticket #42 moved from Open to In Progress", notes[0].Message)
}
