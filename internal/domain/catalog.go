package domain

// UnknownStatusName is recorded in history when a status id has no catalog row.
const UnknownStatusName = "Unknown"

// Status is static reference data for ticket statuses.
type Status struct {
	ID    int64
	Name  string
	Color string
}

// Role identifies a group that can own or act on tickets.
type Role struct {
	ID   int64
	Name string
}

// TicketType classifies tickets; transition rules may target a single type.
type TicketType struct {
	ID   int64
	Name string
}
