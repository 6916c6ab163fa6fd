package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Label  string `json:"label"`
	RoleID int64  `json:"role_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketStatusChangedPayload is published after a transition commits.
type TicketStatusChangedPayload struct {
	RuleID        int64  `json:"rule_id"`
	OldStatusID   int64  `json:"old_status_id"`
	NewStatusID   int64  `json:"new_status_id"`
	OldStatusName string `json:"old_status_name"`
	NewStatusName string `json:"new_status_name"`
	NewRoleID     int64  `json:"new_role_id,omitempty"`
	TicketTitle   string `json:"ticket_title"`
}
