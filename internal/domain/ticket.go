package domain

import "time"

// Ticket is the aggregate whose status moves through the workflow.
// StatusID and RoleID change only through transitions; other fields are
// owned by the surrounding application.
type Ticket struct {
	ID        int64
	StatusID  int64
	TypeID    int64
	Title     string
	RoleID    *int64
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwningRole returns the owning role id or 0 when unset.
func (t *Ticket) OwningRole() int64 {
	if t == nil || t.RoleID == nil {
		return 0
	}
	return *t.RoleID
}
