package domain

import "time"

// Notification records the intent to tell a role about a ticket.
type Notification struct {
	ID        int64
	RoleID    int64
	TicketID  int64
	Message   string
	CreatedAt time.Time
}
