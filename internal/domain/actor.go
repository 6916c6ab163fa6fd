package domain

import "strings"

// SystemActorLabel is used when no identity is available.
const SystemActorLabel = "System"

// Actor is the acting identity threaded into workflow operations.
type Actor struct {
	Label  string
	RoleID int64
}

// EffectiveLabel never returns an empty label.
func (a Actor) EffectiveLabel() string {
	if label := strings.TrimSpace(a.Label); label != "" {
		return label
	}
	return SystemActorLabel
}
