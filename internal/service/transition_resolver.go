package service

import (
	"context"
	"sort"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

// TransitionQuery identifies the state a resolution is computed for.
type TransitionQuery struct {
	TicketID    int64
	StatusID    int64
	TypeID      int64
	ActorRoleID int64
}

// TransitionResolver computes the transitions currently permitted for a
// ticket. It holds no state and never caches.
type TransitionResolver struct {
	rules repository.TransitionRuleRepository
}

// NewTransitionResolver builds a resolver over the rule table.
func NewTransitionResolver(rules repository.TransitionRuleRepository) *TransitionResolver {
	return &TransitionResolver{rules: rules}
}

// Resolve returns the permitted rules for q. A status/type combination with
// no rules yields an empty set, not an error.
func (r *TransitionResolver) Resolve(ctx context.Context, q TransitionQuery) ([]domain.TransitionRule, error) {
	candidates, err := r.rules.ListFromStatus(ctx, q.StatusID)
	if err != nil {
		return nil, err
	}
	return ResolveTransitions(candidates, q.StatusID, q.TypeID, q.ActorRoleID), nil
}

// ResolveTransitions filters candidates down to the rules leaving statusID
// that apply to typeID and may be triggered by actorRoleID. Type-specific
// rules sort before wildcard rules, then by rule id. Rules sharing a next
// status are all kept.
func ResolveTransitions(candidates []domain.TransitionRule, statusID, typeID, actorRoleID int64) []domain.TransitionRule {
	allowed := make([]domain.TransitionRule, 0, len(candidates))
	for _, rule := range candidates {
		if rule.FromStatusID != statusID {
			continue
		}
		if !rule.MatchesType(typeID) || !rule.PermitsActor(actorRoleID) {
			continue
		}
		allowed = append(allowed, rule)
	}
	sort.SliceStable(allowed, func(i, j int) bool {
		wi, wj := allowed[i].IsWildcardType(), allowed[j].IsWildcardType()
		if wi != wj {
			return !wi
		}
		return allowed[i].ID < allowed[j].ID
	})
	return allowed
}

// findRule returns the first rule leading to nextStatusID.
func findRule(allowed []domain.TransitionRule, nextStatusID int64) (domain.TransitionRule, bool) {
	for _, rule := range allowed {
		if rule.NextStatusID == nextStatusID {
			return rule, true
		}
	}
	return domain.TransitionRule{}, false
}
