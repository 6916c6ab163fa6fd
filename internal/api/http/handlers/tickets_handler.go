package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/dto"
	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/service"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// TicketsHandler manages ticket workflow endpoints.
type TicketsHandler struct {
	service *service.TransitionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(transitionService *service.TransitionService) *TicketsHandler {
	return &TicketsHandler{service: transitionService}
}

// ListTransitions GET /tickets/:id/transitions.
func (h *TicketsHandler) ListTransitions(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	requestedRole, err := queryInt64(c, "actor_role_id", 0)
	if err != nil {
		return err
	}
	actor, err := resolveActor(c, requestedRole)
	if err != nil {
		return err
	}

	available, err := h.service.AvailableTransitions(c.UserContext(), ticketID, actor.RoleID)
	if err != nil {
		return err
	}
	items := make([]dto.AvailableTransitionResponse, 0, len(available))
	for _, a := range available {
		items = append(items, dto.AvailableTransitionResponse{
			RuleID:         a.Rule.ID,
			NextStatusID:   a.Rule.NextStatusID,
			NextStatusName: a.NextStatusName,
			TargetRoleID:   a.Rule.TargetRoleID,
			TargetRoleName: a.TargetRoleName,
			Label:          a.Rule.ButtonLabel,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApplyTransition POST /tickets/:id/transitions.
func (h *TicketsHandler) ApplyTransition(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ApplyTransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor, err := resolveActor(c, req.ActorRoleID)
	if err != nil {
		return err
	}

	result, err := h.service.Apply(c.UserContext(), service.ApplyRequest{
		TicketID:           ticketID,
		NextStatusID:       req.NextStatusID,
		ActorRoleID:        actor.RoleID,
		TargetRoleOverride: req.TargetRoleID,
	}, actor.Label)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResultResponse{
		TicketID:         result.TicketID,
		PreviousStatusID: result.OldStatusID,
		StatusID:         result.NewStatusID,
		StatusName:       result.NewStatusName,
		RoleID:           result.RoleID,
		HistoryID:        result.HistoryID,
		Redirect:         fmt.Sprintf("/tickets/%d", result.TicketID),
	}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// resolveActor picks the acting identity. An authenticated caller acts with
// the role from its token; a conflicting requested role is rejected.
func resolveActor(c *fiber.Ctx, requestedRoleID int64) (domain.Actor, error) {
	if requestedRoleID < 0 {
		return domain.Actor{}, apperrors.NewValidationError("actor_role_id must not be negative", nil)
	}
	actor := auth.EffectiveActor(c, requestedRoleID)
	if requestedRoleID != 0 && actor.RoleID != requestedRoleID {
		return domain.Actor{}, apperrors.NewForbidden("actor_role_id does not match the authenticated role")
	}
	return actor, nil
}

func ticketIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("ticket id must be a positive integer", map[string]any{"ticket_id": c.Params("id")})
	}
	return id, nil
}

// queryInt64 reads an optional integer query parameter; a present but
// malformed value is a validation error.
func queryInt64(c *fiber.Ctx, key string, def int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(key+" must be an integer", map[string]any{key: raw})
	}
	return parsed, nil
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: string(entry.ChangeType),
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			Actor:      entry.Actor,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
