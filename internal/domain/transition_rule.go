package domain

const (
	// AnyTicketType marks a rule that applies regardless of ticket type.
	AnyTicketType int64 = 0
	// AnyActorRole marks a rule any role may trigger.
	AnyActorRole int64 = 0
)

// TransitionRule is one edge of the workflow graph.
type TransitionRule struct {
	ID           int64
	FromStatusID int64
	TicketTypeID int64
	NextStatusID int64
	ActorRoleID  int64
	TargetRoleID int64
	ButtonLabel  string
}

// IsWildcardType reports whether the rule ignores ticket type.
func (r TransitionRule) IsWildcardType() bool {
	return r.TicketTypeID == AnyTicketType
}

// MatchesType reports whether the rule applies to the given ticket type.
func (r TransitionRule) MatchesType(typeID int64) bool {
	return r.IsWildcardType() || r.TicketTypeID == typeID
}

// PermitsActor reports whether actorRoleID may trigger the rule.
func (r TransitionRule) PermitsActor(actorRoleID int64) bool {
	return r.ActorRoleID == AnyActorRole || r.ActorRoleID == actorRoleID
}
