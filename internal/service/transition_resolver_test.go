package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository/memory"
)

func TestResolveTransitions_FiltersByTypeAndRole(t *testing.T) {
	rules := []domain.TransitionRule{
		{ID: 1, FromStatusID: 3, TicketTypeID: 1, NextStatusID: 5},
		{ID: 2, FromStatusID: 3, TicketTypeID: 2, NextStatusID: 6},
		{ID: 3, FromStatusID: 3, NextStatusID: 8, ActorRoleID: 2},
		{ID: 4, FromStatusID: 3, NextStatusID: 9, ActorRoleID: 7},
		{ID: 5, FromStatusID: 4, NextStatusID: 5},
	}

	got := ResolveTransitions(rules, 3, 1, 2)

	ids := make([]int64, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestResolveTransitions_TypeSpecificBeforeWildcard(t *testing.T) {
	rules := []domain.TransitionRule{
		{ID: 1, FromStatusID: 3, NextStatusID: 5, TargetRoleID: 2},
		{ID: 2, FromStatusID: 3, TicketTypeID: 1, NextStatusID: 5, TargetRoleID: 7},
	}

	got := ResolveTransitions(rules, 3, 1, 0)

	require.Len(t, got, 2, "duplicates by next status are kept")
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestResolveTransitions_UnknownCombinationIsEmpty(t *testing.T) {
	rules := []domain.TransitionRule{{ID: 1, FromStatusID: 3, TicketTypeID: 1, NextStatusID: 5}}

	assert.Empty(t, ResolveTransitions(rules, 77, 1, 0))
	assert.Empty(t, ResolveTransitions(rules, 3, 99, 0))
	assert.Empty(t, ResolveTransitions(nil, 3, 1, 0))
}

func TestResolveTransitions_ZeroActorOnlyGetsOpenRules(t *testing.T) {
	rules := []domain.TransitionRule{
		{ID: 1, FromStatusID: 3, NextStatusID: 5},
		{ID: 2, FromStatusID: 3, NextStatusID: 6, ActorRoleID: 4},
	}

	got := ResolveTransitions(rules, 3, 1, 0)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestTransitionResolver_Idempotent(t *testing.T) {
	store := memory.NewStore()
	store.AddRule(domain.TransitionRule{FromStatusID: 3, TicketTypeID: 1, NextStatusID: 5, TargetRoleID: 7})
	store.AddRule(domain.TransitionRule{FromStatusID: 3, NextStatusID: 6})
	resolver := NewTransitionResolver(store.Rules())
	q := TransitionQuery{TicketID: 42, StatusID: 3, TypeID: 1, ActorRoleID: 2}

	first, err := resolver.Resolve(context.Background(), q)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestFindRule(t *testing.T) {
	allowed := []domain.TransitionRule{
		{ID: 2, NextStatusID: 5, TargetRoleID: 7},
		{ID: 1, NextStatusID: 5, TargetRoleID: 2},
	}

	rule, ok := findRule(allowed, 5)
	require.True(t, ok)
	assert.Equal(t, int64(2), rule.ID)

	_, ok = findRule(allowed, 9)
	assert.False(t, ok)
}
