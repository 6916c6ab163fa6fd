package repository

import (
	"context"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// NotificationRepository persists notification intents.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Notification, error)
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (role_id, ticket_id, message, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.db.QueryRow(ctx, query, n.RoleID, n.TicketID, n.Message, n.CreatedAt).Scan(&n.ID)
}

func (r *notificationRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Notification, error) {
	const query = `
        SELECT id, role_id, ticket_id, message, created_at
        FROM notifications WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RoleID, &n.TicketID, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
