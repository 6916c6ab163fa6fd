package dto

import "time"

// ApplyTransitionRequest payload. TargetRoleID 0 means no override.
type ApplyTransitionRequest struct {
	NextStatusID int64 `json:"next_status_id"`
	ActorRoleID  int64 `json:"actor_role_id"`
	TargetRoleID int64 `json:"target_role_id"`
}

// TransitionResultResponse acknowledges an applied transition.
type TransitionResultResponse struct {
	TicketID         int64  `json:"ticket_id"`
	PreviousStatusID int64  `json:"previous_status_id"`
	StatusID         int64  `json:"status_id"`
	StatusName       string `json:"status_name"`
	RoleID           *int64 `json:"role_id"`
	HistoryID        int64  `json:"history_id"`
	Redirect         string `json:"redirect"`
}

// AvailableTransitionResponse is one button the caller may press.
type AvailableTransitionResponse struct {
	RuleID         int64  `json:"rule_id"`
	NextStatusID   int64  `json:"next_status_id"`
	NextStatusName string `json:"next_status_name"`
	TargetRoleID   int64  `json:"target_role_id,omitempty"`
	TargetRoleName string `json:"target_role_name,omitempty"`
	Label          string `json:"label"`
}

// TicketHistoryResponse represents one audit entry.
type TicketHistoryResponse struct {
	ID         int64     `json:"id"`
	ChangeType string    `json:"change_type"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

// InconsistentTicketResponse lists a ticket with dangling references.
type InconsistentTicketResponse struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	StatusID int64    `json:"status_id"`
	TypeID   int64    `json:"type_id"`
	RoleID   *int64   `json:"role_id"`
	Issues   []string `json:"issues"`
}

// StatusResponse is a catalog row.
type StatusResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RoleResponse is a catalog row.
type RoleResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
